// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses forms, writes responses
//	Service (Business layer) → validates, checks ownership, orchestrates
//	Repository (Data layer)  → reads/writes the store
//
// Services take repository interfaces, never a concrete store, so tests pass
// in-memory fakes and main picks SQLite or Postgres.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/repository"
)

// PostInput is the create/edit post form. All fields are required.
type PostInput struct {
	Title    string `form:"title" validate:"required,max=250"`
	Subtitle string `form:"subtitle" validate:"required,max=250"`
	Body     string `form:"body" validate:"required"`
	ImgURL   string `form:"img_url" validate:"required,http_url"`
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
	in.Body = strings.TrimSpace(in.Body)
	in.ImgURL = strings.TrimSpace(in.ImgURL)
}

type commentInput struct {
	Text string `form:"text" validate:"required,max=5000"`
}

// PostService owns posts and comments and enforces who may change them:
// only the author edits or deletes a post; any authenticated user comments.
type PostService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		users:    users,
		logger:   logger,
	}
}

// CreatePost publishes a post authored by actorID.
func (s *PostService) CreatePost(ctx context.Context, actorID int64, in PostInput) (*model.Post, error) {
	if actorID <= 0 {
		return nil, apperror.ErrUnauthorized
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	post := &model.Post{
		AuthorID: actorID,
		Title:    in.Title,
		Subtitle: in.Subtitle,
		Body:     in.Body,
		ImgURL:   in.ImgURL,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.Int64("postID", post.ID),
		slog.Int64("authorID", actorID),
	)
	return post, nil
}

// UpdatePost replaces the post's fields. Only the author may do this;
// anyone else gets apperror.ErrForbidden and the post is unchanged.
func (s *PostService) UpdatePost(ctx context.Context, actorID, postID int64, in PostInput) (*model.Post, error) {
	post, err := s.ownedPost(ctx, actorID, postID, "edit")
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Subtitle = in.Subtitle
	post.Body = in.Body
	post.ImgURL = in.ImgURL
	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: updating post %d: %w", postID, err)
	}

	s.logger.Info("post updated", slog.Int64("postID", postID), slog.Int64("authorID", actorID))
	return post, nil
}

// DeletePost removes the post and its comments. Only the author may do this.
func (s *PostService) DeletePost(ctx context.Context, actorID, postID int64) error {
	if _, err := s.ownedPost(ctx, actorID, postID, "delete"); err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("service/post: deleting post %d: %w", postID, err)
	}

	s.logger.Info("post deleted", slog.Int64("postID", postID), slog.Int64("authorID", actorID))
	return nil
}

// AddComment appends a comment by actorID to an existing post.
func (s *PostService) AddComment(ctx context.Context, actorID, postID int64, text string) (*model.Comment, error) {
	if actorID <= 0 {
		return nil, apperror.ErrUnauthorized
	}
	in := commentInput{Text: strings.TrimSpace(text)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		AuthorID: actorID,
		PostID:   postID,
		Text:     in.Text,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/post: commenting on post %d: %w", postID, err)
	}

	s.logger.Info("comment added",
		slog.Int64("commentID", comment.ID),
		slog.Int64("postID", postID),
		slog.Int64("authorID", actorID),
	)
	return comment, nil
}

// RecentPosts returns the author's four newest posts.
func (s *PostService) RecentPosts(ctx context.Context, authorID int64) ([]model.Post, error) {
	return s.listPosts(ctx, authorID, RecentPostsLimit)
}

// AllPosts returns every post by the author, newest first.
func (s *PostService) AllPosts(ctx context.Context, authorID int64) ([]model.Post, error) {
	return s.listPosts(ctx, authorID, 0)
}

func (s *PostService) listPosts(ctx context.Context, authorID int64, limit int) ([]model.Post, error) {
	posts, err := s.posts.ListPostsByAuthor(ctx, authorID, repository.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts of %d: %w", authorID, err)
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}

// GetPost returns the post or apperror.ErrNotFound.
func (s *PostService) GetPost(ctx context.Context, postID int64) (*model.Post, error) {
	if postID <= 0 {
		return nil, apperror.ValidationFailed("id", "post id must be a positive integer")
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/post: fetching post %d: %w", postID, err)
	}
	return post, nil
}

// GetPostDetail returns the post with its author's username and comments.
func (s *PostService) GetPostDetail(ctx context.Context, postID int64) (*model.PostDetail, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	author, err := s.users.GetUserByID(ctx, post.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("service/post: fetching author of post %d: %w", postID, err)
	}

	comments, err := s.comments.ListCommentsByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing comments of post %d: %w", postID, err)
	}
	if comments == nil {
		comments = []model.Comment{}
	}

	return &model.PostDetail{
		Post:           *post,
		AuthorUsername: author.Username,
		Comments:       comments,
	}, nil
}

// ownedPost loads the post and checks that actorID wrote it.
func (s *PostService) ownedPost(ctx context.Context, actorID, postID int64, action string) (*model.Post, error) {
	if actorID <= 0 {
		return nil, apperror.ErrUnauthorized
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		s.logger.Warn("post ownership check failed",
			slog.String("action", action),
			slog.Int64("postID", postID),
			slog.Int64("actorID", actorID),
		)
		return nil, apperror.Forbidden(fmt.Sprintf("only the author can %s this post", action))
	}
	return post, nil
}
