package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
)

// favoriteRow is one edge; the composite primary key allows a single row per
// ordered pair.
type favoriteRow struct {
	FavoritingID int64 `gorm:"primaryKey;autoIncrement:false"`
	FavoritedID  int64 `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt    time.Time
}

func (favoriteRow) TableName() string { return "favorites" }

func (db *DB) ToggleFavorite(ctx context.Context, actorID, targetID int64) (bool, error) {
	var favorited bool
	err := db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("favoriting_id = ? AND favorited_id = ?", actorID, targetID).Delete(&favoriteRow{})
		if result.Error != nil {
			return fmt.Errorf("postgres: removing favorite %d→%d: %w", actorID, targetID, result.Error)
		}
		if result.RowsAffected > 0 {
			favorited = false
			return nil
		}

		if err := tx.Create(&favoriteRow{FavoritingID: actorID, FavoritedID: targetID}).Error; err != nil {
			if _, ok := violatedConstraint(err); ok {
				return apperror.Conflict("favorite", "pair")
			}
			return fmt.Errorf("postgres: adding favorite %d→%d: %w", actorID, targetID, err)
		}
		favorited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return favorited, nil
}

func (db *DB) FavoritesOf(ctx context.Context, userID int64) ([]model.User, error) {
	return db.favoriteUsers(ctx,
		"JOIN favorites f ON f.favorited_id = users.id", "f.favoriting_id = ?", userID)
}

func (db *DB) FavoredBy(ctx context.Context, userID int64) ([]model.User, error) {
	return db.favoriteUsers(ctx,
		"JOIN favorites f ON f.favoriting_id = users.id", "f.favorited_id = ?", userID)
}

func (db *DB) favoriteUsers(ctx context.Context, join, where string, userID int64) ([]model.User, error) {
	var rows []userRow
	err := db.gorm.WithContext(ctx).
		Joins(join).
		Where(where, userID).
		Order("f.created_at, users.id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing favorites for user %d: %w", userID, err)
	}

	users := make([]model.User, 0, len(rows))
	for i := range rows {
		users = append(users, *rows[i].toModel())
	}
	return users, nil
}
