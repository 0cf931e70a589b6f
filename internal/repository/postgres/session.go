package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
)

type sessionRow struct {
	ID        string `gorm:"primaryKey;size:32"`
	UserID    int64  `gorm:"not null;index"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null"`
}

func (sessionRow) TableName() string { return "sessions" }

func (db *DB) CreateSession(ctx context.Context, session *model.Session) error {
	row := &sessionRow{
		ID:        session.ID,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	if err := db.gorm.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("postgres: creating session for user %d: %w", session.UserID, err)
	}
	return nil
}

func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var row sessionRow
	if err := db.gorm.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("postgres: getting session: %w", err)
	}
	return &model.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

func (db *DB) TouchSession(ctx context.Context, id string, expiresAt time.Time) error {
	result := db.gorm.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", id).Update("expires_at", expiresAt)
	if result.Error != nil {
		return fmt.Errorf("postgres: touching session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("session", id)
	}
	return nil
}

func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if err := db.gorm.WithContext(ctx).Where("id = ?", id).Delete(&sessionRow{}).Error; err != nil {
		return fmt.Errorf("postgres: deleting session: %w", err)
	}
	return nil
}

func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := db.gorm.WithContext(ctx).Where("expires_at <= ?", now).Delete(&sessionRow{})
	if result.Error != nil {
		return 0, fmt.Errorf("postgres: sweeping sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
