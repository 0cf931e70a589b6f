// Package repository declares the storage contracts the service layer depends on.
// Implementations live in the sqlite, postgres and redis subpackages.
package repository

import (
	"context"
	"time"

	"github.com/sakif/clean-blog/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the credential store.
//
// CreateUser and UpdateUser return an apperror.ErrConflict error when the
// username or email is already taken; the check is the store's UNIQUE
// constraint, so two concurrent registrations cannot both succeed.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id int64) (*model.Post, error)
	// ListPostsByAuthor returns newest first. Limit <= 0 means no limit.
	ListPostsByAuthor(ctx context.Context, authorID int64, opts ListOptions) ([]model.Post, error)
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id int64) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	// ListCommentsByPost returns oldest first.
	ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error)
}

// FavoriteRepository stores the favorite graph as (favoriting, favorited) edges.
type FavoriteRepository interface {
	// ToggleFavorite flips the edge actorID→targetID in one transaction and
	// reports whether the edge exists afterwards.
	ToggleFavorite(ctx context.Context, actorID, targetID int64) (bool, error)
	// FavoritesOf lists the users that userID favorites.
	FavoritesOf(ctx context.Context, userID int64) ([]model.User, error)
	// FavoredBy lists the users that favorite userID.
	FavoredBy(ctx context.Context, userID int64) ([]model.User, error)
}

// SessionRepository keeps server-side login sessions.
// GetSession returns apperror.ErrNotFound for unknown or deleted sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	TouchSession(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes sessions whose expiry is not after now and
	// reports how many it removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is everything a relational backend provides.
type Store interface {
	UserRepository
	PostRepository
	CommentRepository
	FavoriteRepository
	SessionRepository
	Close() error
}
