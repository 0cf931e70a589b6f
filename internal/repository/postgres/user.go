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
)

type userRow struct {
	ID           int64   `gorm:"primaryKey"`
	Username     string  `gorm:"size:100;not null;uniqueIndex:idx_users_username"`
	Email        *string `gorm:"size:100;uniqueIndex:idx_users_email"`
	PasswordHash string  `gorm:"not null;default:''"`
	BgColor      string  `gorm:"size:7;not null;default:''"`
	Bio          string  `gorm:"size:250;not null;default:''"`
	GitHubID     *int64  `gorm:"column:github_id;uniqueIndex:idx_users_github_id"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func toUserRow(u *model.User) *userRow {
	return &userRow{
		ID:           u.ID,
		Username:     u.Username,
		Email:        optionalString(u.Email),
		PasswordHash: u.PasswordHash,
		BgColor:      u.BgColor,
		Bio:          u.Bio,
		GitHubID:     optionalInt64(u.GitHubID),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *userRow) toModel() *model.User {
	u := &model.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		BgColor:      r.BgColor,
		Bio:          r.Bio,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Email != nil {
		u.Email = *r.Email
	}
	if r.GitHubID != nil {
		u.GitHubID = *r.GitHubID
	}
	return u
}

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	row := toUserRow(user)
	if err := db.gorm.WithContext(ctx).Create(row).Error; err != nil {
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres: creating user %q: %w", user.Username, err)
	}
	*user = *row.toModel()
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return db.findUser(ctx, strconv.FormatInt(id, 10), "id = ?", id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.findUser(ctx, username, "username = ?", username)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.findUser(ctx, strconv.FormatInt(githubID, 10), "github_id = ?", githubID)
}

func (db *DB) findUser(ctx context.Context, key string, query string, arg any) (*model.User, error) {
	var row userRow
	if err := db.gorm.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("postgres: finding user %s: %w", key, err)
	}
	return row.toModel(), nil
}

func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()
	result := db.gorm.WithContext(ctx).Model(&userRow{}).Where("id = ?", user.ID).Updates(map[string]any{
		"username":      user.Username,
		"email":         optionalString(user.Email),
		"password_hash": user.PasswordHash,
		"bg_color":      user.BgColor,
		"bio":           user.Bio,
		"github_id":     optionalInt64(user.GitHubID),
		"updated_at":    user.UpdatedAt,
	})
	if result.Error != nil {
		if conflict := userConflict(result.Error); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres: updating user %d: %w", user.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(user.ID, 10))
	}
	return nil
}

func userConflict(err error) error {
	constraint, ok := violatedConstraint(err)
	if !ok {
		return nil
	}
	switch constraint {
	case idxUsersEmail:
		return apperror.Conflict("user", "email")
	case idxUsersGitHubID:
		return apperror.Conflict("user", "github account")
	default:
		return apperror.Conflict("user", "username")
	}
}
