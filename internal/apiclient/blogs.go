package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"devstudio/internal/models"
	"devstudio/internal/pagination"
)

// ListBlogs fetches one page of posts; a non-empty term uses the search
// endpoint instead.
func (c *Client) ListBlogs(ctx context.Context, term string, page, size int) (pagination.Page[models.BlogPost], error) {
	r := request{
		op:       "load posts",
		method:   http.MethodGet,
		endpoint: "/api/blogs",
		params:   pageParams(page, size),
	}
	if term != "" {
		r.op = "search posts"
		r.endpoint = "/api/blogs/search"
		r.params.Set("q", term)
	}

	var resp blogPageResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return pagination.Page[models.BlogPost]{}, err
	}
	return resp.toPage(page, size), nil
}

// GetBlog fetches a single post; a missing post yields apperr.ErrNotFound.
func (c *Client) GetBlog(ctx context.Context, id string) (*models.BlogPost, error) {
	var resp blogPostDTO
	err := c.do(ctx, request{
		op:       "load post",
		method:   http.MethodGet,
		endpoint: "/api/blogs/" + url.PathEscape(id),
		route:    "/api/blogs/{id}",
	}, &resp)
	if err != nil {
		return nil, err
	}
	post := resp.toModel()
	return &post, nil
}

// ToggleLike flips the current user's like on a post.
func (c *Client) ToggleLike(ctx context.Context, id string) (models.LikeState, error) {
	var resp likeResponse
	err := c.do(ctx, request{
		op:       "like post",
		method:   http.MethodPost,
		endpoint: "/api/blogs/" + url.PathEscape(id) + "/like",
		route:    "/api/blogs/{id}/like",
		auth:     true,
	}, &resp)
	if err != nil {
		return models.LikeState{}, err
	}
	return models.LikeState{Liked: resp.Liked, Likes: resp.Likes}, nil
}
