package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/repository"
)

const postColumns = `id, author_id, title, subtitle, body, img_url, created_at, updated_at`

// CreatePost inserts a new post and fills in ID and timestamps.
// A second post with the same title by the same author is a conflict.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	t := now()
	post.CreatedAt = t
	post.UpdatedAt = t

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO blog_posts (author_id, title, subtitle, body, img_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.AuthorID,
		post.Title,
		post.Subtitle,
		post.Body,
		post.ImgURL,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return apperror.Conflict("post", "title")
		}
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new post id: %w", err)
	}
	post.ID = id

	return nil
}

// GetPostByID retrieves a single post.
// sql.ErrNoRows is translated to apperror.NotFound so the handler answers 404.
func (db *DB) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	var p model.Post

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM blog_posts WHERE id = ?`, id,
	).Scan(
		&p.ID, &p.AuthorID, &p.Title, &p.Subtitle, &p.Body, &p.ImgURL,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting post %d: %w", id, err)
	}

	return &p, nil
}

// ListPostsByAuthor returns an author's posts, newest first.
//
// SQLite treats LIMIT -1 as "no limit", which is how Limit <= 0 is expressed.
// id DESC breaks ties between posts created in the same instant.
func (db *DB) ListPostsByAuthor(ctx context.Context, authorID int64, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM blog_posts
		 WHERE author_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		authorID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts for author %d: %w", authorID, err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.Title, &p.Subtitle, &p.Body, &p.ImgURL,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// UpdatePost rewrites the editable fields. AuthorID and CreatedAt never change.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE blog_posts
		 SET title = ?, subtitle = ?, body = ?, img_url = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Subtitle,
		post.Body,
		post.ImgURL,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return apperror.Conflict("post", "title")
		}
		return fmt.Errorf("sqlite: updating post %d: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", strconv.FormatInt(post.ID, 10))
	}

	return nil
}

// DeletePost removes a post; its comments go with it (ON DELETE CASCADE).
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", strconv.FormatInt(id, 10))
	}

	return nil
}
