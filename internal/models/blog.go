package models

import "time"

type BlogPost struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug,omitempty"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Content    string    `json:"content,omitempty"`
	Category   string    `json:"category,omitempty"`
	AuthorName string    `json:"author_name,omitempty"`
	CoverImage string    `json:"cover_image,omitempty"`
	Likes      int       `json:"likes"`
	LikedByMe  bool      `json:"liked_by_me"`
	CreatedAt  time.Time `json:"created_at"`
}

func BlogPostKey(p BlogPost) string {
	return p.ID
}

// LikeState is the server's answer to a like toggle.
type LikeState struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}
