package apiclient

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"devstudio/internal/models"
	"devstudio/internal/pagination"

	"github.com/ecodeclub/ekit/slice"
)

// flexID accepts identifiers sent either as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = flexID(n.String())
	return nil
}

// Comment-related request/response structures
type commentDTO struct {
	ID               flexID       `json:"id"`
	Content          string       `json:"content"`
	AuthorName       string       `json:"authorName"`
	AuthorInitials   string       `json:"authorInitials"`
	AuthorProfilePic string       `json:"authorProfilePic"`
	CreatedAt        time.Time    `json:"createdAt"`
	IsOwner          bool         `json:"isOwner"`
	ParentID         flexID       `json:"parentId"`
	Replies          []commentDTO `json:"replies"`
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId,omitempty"`
}

type commentPageResponse struct {
	Content []commentDTO `json:"content"`
	Last    bool         `json:"last"`
	Number  int          `json:"number"`
	Size    int          `json:"size"`
}

func (d commentDTO) toModel() models.Comment {
	c := models.Comment{
		ID:               string(d.ID),
		Content:          d.Content,
		AuthorName:       d.AuthorName,
		AuthorInitials:   d.AuthorInitials,
		AuthorProfilePic: d.AuthorProfilePic,
		CreatedAt:        d.CreatedAt,
		IsOwner:          d.IsOwner,
		ParentID:         string(d.ParentID),
	}
	if c.AuthorInitials == "" {
		c.AuthorInitials = initials(c.AuthorName)
	}
	if len(d.Replies) > 0 {
		c.Replies = slice.Map(d.Replies, func(idx int, src commentDTO) models.Comment {
			return src.toModel()
		})
	}
	return c
}

// Blog-related request/response structures
type blogPostDTO struct {
	ID         flexID    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Excerpt    string    `json:"excerpt"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	AuthorName string    `json:"authorName"`
	CoverImage string    `json:"coverImage"`
	Likes      int       `json:"likes"`
	LikedByMe  bool      `json:"likedByMe"`
	CreatedAt  time.Time `json:"createdAt"`
}

type blogPageResponse struct {
	Content    []blogPostDTO `json:"content"`
	TotalPages int           `json:"totalPages"`
	Last       *bool         `json:"last"`
	Number     int           `json:"number"`
}

func (d blogPostDTO) toModel() models.BlogPost {
	return models.BlogPost{
		ID:         string(d.ID),
		Title:      d.Title,
		Slug:       d.Slug,
		Excerpt:    d.Excerpt,
		Content:    d.Content,
		Category:   d.Category,
		AuthorName: d.AuthorName,
		CoverImage: d.CoverImage,
		Likes:      d.Likes,
		LikedByMe:  d.LikedByMe,
		CreatedAt:  d.CreatedAt,
	}
}

func (r blogPageResponse) toPage(page, size int) pagination.Page[models.BlogPost] {
	last := page+1 >= r.TotalPages
	if r.Last != nil {
		last = *r.Last
	}
	return pagination.Page[models.BlogPost]{
		Items: slice.Map(r.Content, func(idx int, src blogPostDTO) models.BlogPost {
			return src.toModel()
		}),
		Index:      page,
		Size:       size,
		Last:       last,
		TotalPages: r.TotalPages,
	}
}

type likeResponse struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// Product-related structures
type productDTO struct {
	ID          flexID   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       string   `json:"price"`
	ImageURL    string   `json:"image"`
	Features    []string `json:"features"`
}

func (d productDTO) toModel() models.Product {
	return models.Product{
		ID:          string(d.ID),
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Price:       d.Price,
		ImageURL:    d.ImageURL,
		Features:    d.Features,
	}
}

// Auth-related structures
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID         flexID `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	ProfilePic string `json:"profilePic"`
}

func (d userDTO) toModel() models.User {
	return models.User{
		ID:         string(d.ID),
		Name:       d.Name,
		Email:      d.Email,
		Role:       d.Role,
		ProfilePic: d.ProfilePic,
	}
}

type authResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

// initials derives "AL" from "Ada Lovelace" when the server sends none.
func initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		r := []rune(part)
		b.WriteString(strings.ToUpper(string(r[0])))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}
