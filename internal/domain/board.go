package domain

import "time"

type Board struct {
	BoardID     int64  `json:"boardId"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PostCount   int64  `json:"postCount"`
}

type Post struct {
	PostID       int64     `json:"postId"`
	BoardID      int64     `json:"boardId"`
	Title        string    `json:"title"`
	Content      string    `json:"content,omitempty"`
	Author       Actor     `json:"author"`
	ViewCount    int64     `json:"viewCount"`
	CommentCount int64     `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Page mirrors the backend's paged envelope for list endpoints.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}
