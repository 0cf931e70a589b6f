package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/repository"
)

// FavoriteService maintains the directed favorite graph.
type FavoriteService struct {
	favorites repository.FavoriteRepository
	users     repository.UserRepository
	logger    *slog.Logger
}

func NewFavoriteService(favorites repository.FavoriteRepository, users repository.UserRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		users:     users,
		logger:    logger,
	}
}

// ToggleResult describes what a toggle did. Target is nil when the named
// user does not exist and nothing changed.
type ToggleResult struct {
	Target    *model.User
	Favorited bool
}

// Toggle flips actorID's favorite of the user named targetUsername.
// An unknown target is a silent no-op.
func (s *FavoriteService) Toggle(ctx context.Context, actorID int64, targetUsername string) (ToggleResult, error) {
	if actorID <= 0 {
		return ToggleResult{}, apperror.ErrUnauthorized
	}

	target, err := s.users.GetUserByUsername(ctx, normalizeUsername(targetUsername))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return ToggleResult{}, nil
		}
		return ToggleResult{}, fmt.Errorf("service/favorite: looking up %q: %w", targetUsername, err)
	}

	favorited, err := s.toggle(ctx, actorID, target.ID)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Target: target, Favorited: favorited}, nil
}

func (s *FavoriteService) toggle(ctx context.Context, actorID, targetID int64) (bool, error) {
	if actorID == targetID {
		return false, apperror.ValidationFailed("target", "you cannot favorite yourself")
	}

	favorited, err := s.favorites.ToggleFavorite(ctx, actorID, targetID)
	if err != nil {
		return false, fmt.Errorf("service/favorite: toggling %d→%d: %w", actorID, targetID, err)
	}

	s.logger.Info("favorite toggled",
		slog.Int64("actorID", actorID),
		slog.Int64("targetID", targetID),
		slog.Bool("favorited", favorited),
	)
	return favorited, nil
}

// FavoritesOf lists the users userID favorites.
func (s *FavoriteService) FavoritesOf(ctx context.Context, userID int64) ([]model.User, error) {
	users, err := s.favorites.FavoritesOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/favorite: favorites of %d: %w", userID, err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// FavoredBy lists the users that favorite userID.
func (s *FavoriteService) FavoredBy(ctx context.Context, userID int64) ([]model.User, error) {
	users, err := s.favorites.FavoredBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/favorite: favored by of %d: %w", userID, err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}
