package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/clean-blog/internal/model"
)

func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.CreatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (author_id, post_id, text, created_at) VALUES (?, ?, ?, ?)`,
		comment.AuthorID,
		comment.PostID,
		comment.Text,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on post %d: %w", comment.PostID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new comment id: %w", err)
	}
	comment.ID = id

	return nil
}

func (db *DB) ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, author_id, post_id, text, created_at
		 FROM comments
		 WHERE post_id = ?
		 ORDER BY created_at ASC, id ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %d: %w", postID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.PostID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}
