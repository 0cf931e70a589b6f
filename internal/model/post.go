package model

import "time"

// Post is a blog post owned by exactly one User (AuthorID).
// Titles are unique per author.
type Post struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"authorId"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	Body      string    `json:"body"`
	ImgURL    string    `json:"imgUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment belongs to one author and one post. Comments are append-only.
type Comment struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"authorId"`
	PostID    int64     `json:"postId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostDetail is a post together with its author's username and its comments
// (oldest first). It is what the single-post page shows.
type PostDetail struct {
	Post
	AuthorUsername string    `json:"authorUsername"`
	Comments       []Comment `json:"comments"`
}
