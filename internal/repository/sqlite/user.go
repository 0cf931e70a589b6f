package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
)

const userColumns = `id, username, email, password_hash, bg_color, bio, github_id, created_at, updated_at`

// CreateUser inserts a new user and fills in ID and timestamps.
//
// There is no "SELECT then INSERT" existence check: the UNIQUE constraints on
// username, email and github_id decide, and a violation comes back as
// apperror.Conflict naming the taken field.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	t := now()
	user.CreatedAt = t
	user.UpdatedAt = t

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, bg_color, bio, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Username,
		nullString(user.Email),
		user.PasswordHash,
		user.BgColor,
		user.Bio,
		nullInt64(user.GitHubID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, strconv.FormatInt(id, 10))
}

// GetUserByUsername is an exact match; callers normalise case beforehand.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row, username)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)
	return scanUser(row, strconv.FormatInt(githubID, 10))
}

// UpdateUser saves the profile fields (username, email, bg_color, bio) and
// password hash in a single statement.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET username = ?, email = ?, password_hash = ?, bg_color = ?, bio = ?, github_id = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username,
		nullString(user.Email),
		user.PasswordHash,
		user.BgColor,
		user.Bio,
		nullInt64(user.GitHubID),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(user.ID, 10))
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, key string) (*model.User, error) {
	u, err := scanUserRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}
	return u, nil
}

func scanUserRow(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		email    sql.NullString
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&email,
		&u.PasswordHash,
		&u.BgColor,
		&u.Bio,
		&githubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.GitHubID = githubID.Int64
	return &u, nil
}

// userConflict translates a UNIQUE violation on the users table.
func userConflict(err error) error {
	detail, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(detail, "users.email"):
		return apperror.Conflict("user", "email")
	case strings.Contains(detail, "users.github_id"):
		return apperror.Conflict("user", "github account")
	default:
		return apperror.Conflict("user", "username")
	}
}
