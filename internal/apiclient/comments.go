package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"devstudio/internal/apperr"
	"devstudio/internal/models"
	"devstudio/internal/pagination"

	"github.com/ecodeclub/ekit/slice"
)

// ListComments fetches one page of top-level comments, replies nested.
func (c *Client) ListComments(ctx context.Context, postID string, page, size int) (pagination.Page[models.Comment], error) {
	var resp commentPageResponse
	err := c.do(ctx, request{
		op:       "load comments",
		method:   http.MethodGet,
		endpoint: "/api/comments/post/" + url.PathEscape(postID),
		route:    "/api/comments/post/{id}",
		params:   pageParams(page, size),
	}, &resp)
	if err != nil {
		return pagination.Page[models.Comment]{}, err
	}

	return pagination.Page[models.Comment]{
		Items: slice.Map(resp.Content, func(idx int, src commentDTO) models.Comment {
			return src.toModel()
		}),
		Index: page,
		Size:  size,
		Last:  resp.Last,
	}, nil
}

// CreateComment posts a top-level comment (empty parentID) or a reply.
func (c *Client) CreateComment(ctx context.Context, postID, content, parentID string) (*models.Comment, error) {
	var resp commentDTO
	err := c.do(ctx, request{
		op:       "post comment",
		method:   http.MethodPost,
		endpoint: "/api/comments/post/" + url.PathEscape(postID),
		route:    "/api/comments/post/{id}",
		body:     createCommentRequest{Content: content, ParentID: parentID},
		auth:     true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, apperr.Network("post comment", errors.New("server returned a comment without id"))
	}

	comment := resp.toModel()
	if comment.ParentID == "" {
		comment.ParentID = strings.TrimSpace(parentID)
	}
	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, request{
		op:       "delete comment",
		method:   http.MethodDelete,
		endpoint: "/api/comments/" + url.PathEscape(commentID),
		route:    "/api/comments/{id}",
		auth:     true,
	}, nil)
}
