package models

import "time"

// Comment is one node of a post's discussion tree. Top-level comments have an
// empty ParentID; replies reference their parent and live in its Replies.
type Comment struct {
	ID               string    `json:"id"`
	Content          string    `json:"content"`
	AuthorName       string    `json:"author_name"`
	AuthorInitials   string    `json:"author_initials"`
	AuthorProfilePic string    `json:"author_profile_pic,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	IsOwner          bool      `json:"is_owner"`
	ParentID         string    `json:"parent_id,omitempty"`
	Replies          []Comment `json:"replies,omitempty"`
}

// IsReply reports whether the comment hangs under another comment.
func (c Comment) IsReply() bool {
	return c.ParentID != ""
}

// CommentKey is the identity function used for de-duplication.
func CommentKey(c Comment) string {
	return c.ID
}
