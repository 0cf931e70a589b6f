package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/repository"
)

type postRow struct {
	ID        int64     `gorm:"primaryKey"`
	AuthorID  int64     `gorm:"not null;index;uniqueIndex:idx_posts_author_title,priority:1"`
	Title     string    `gorm:"size:250;not null;uniqueIndex:idx_posts_author_title,priority:2"`
	Subtitle  string    `gorm:"size:250;not null"`
	Body      string    `gorm:"type:text;not null"`
	ImgURL    string    `gorm:"column:img_url;size:250;not null"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (postRow) TableName() string { return "blog_posts" }

func (r *postRow) toModel() model.Post {
	return model.Post{
		ID:        r.ID,
		AuthorID:  r.AuthorID,
		Title:     r.Title,
		Subtitle:  r.Subtitle,
		Body:      r.Body,
		ImgURL:    r.ImgURL,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type commentRow struct {
	ID        int64  `gorm:"primaryKey"`
	AuthorID  int64  `gorm:"not null"`
	PostID    int64  `gorm:"not null;index"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (commentRow) TableName() string { return "comments" }

func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	row := &postRow{
		AuthorID: post.AuthorID,
		Title:    post.Title,
		Subtitle: post.Subtitle,
		Body:     post.Body,
		ImgURL:   post.ImgURL,
	}
	if err := db.gorm.WithContext(ctx).Create(row).Error; err != nil {
		if c, ok := violatedConstraint(err); ok && c == idxPostsAuthorTitle {
			return apperror.Conflict("post", "title")
		}
		return fmt.Errorf("postgres: creating post: %w", err)
	}
	*post = row.toModel()
	return nil
}

func (db *DB) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	var row postRow
	if err := db.gorm.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("post", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: finding post %d: %w", id, err)
	}
	p := row.toModel()
	return &p, nil
}

func (db *DB) ListPostsByAuthor(ctx context.Context, authorID int64, opts repository.ListOptions) ([]model.Post, error) {
	query := db.gorm.WithContext(ctx).Where("author_id = ?", authorID).Order("created_at DESC, id DESC")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var rows []postRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing posts for author %d: %w", authorID, err)
	}

	posts := make([]model.Post, 0, len(rows))
	for i := range rows {
		posts = append(posts, rows[i].toModel())
	}
	return posts, nil
}

func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now()
	result := db.gorm.WithContext(ctx).Model(&postRow{}).Where("id = ?", post.ID).Updates(map[string]any{
		"title":      post.Title,
		"subtitle":   post.Subtitle,
		"body":       post.Body,
		"img_url":    post.ImgURL,
		"updated_at": post.UpdatedAt,
	})
	if result.Error != nil {
		if c, ok := violatedConstraint(result.Error); ok && c == idxPostsAuthorTitle {
			return apperror.Conflict("post", "title")
		}
		return fmt.Errorf("postgres: updating post %d: %w", post.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("post", strconv.FormatInt(post.ID, 10))
	}
	return nil
}

// DeletePost removes the post and its comments in one transaction.
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&commentRow{}).Error; err != nil {
			return fmt.Errorf("postgres: deleting comments of post %d: %w", id, err)
		}
		result := tx.Delete(&postRow{}, id)
		if result.Error != nil {
			return fmt.Errorf("postgres: deleting post %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("post", strconv.FormatInt(id, 10))
		}
		return nil
	})
}

func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	row := &commentRow{AuthorID: comment.AuthorID, PostID: comment.PostID, Text: comment.Text}
	if err := db.gorm.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("postgres: creating comment on post %d: %w", comment.PostID, err)
	}
	comment.ID = row.ID
	comment.CreatedAt = row.CreatedAt
	return nil
}

func (db *DB) ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	var rows []commentRow
	if err := db.gorm.WithContext(ctx).Where("post_id = ?", postID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing comments for post %d: %w", postID, err)
	}
	comments := make([]model.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, model.Comment{
			ID: r.ID, AuthorID: r.AuthorID, PostID: r.PostID, Text: r.Text, CreatedAt: r.CreatedAt,
		})
	}
	return comments, nil
}
