// Package postgres implements the repository interfaces on PostgreSQL using GORM.
//
// It is the production alternative to the sqlite package and is selected with
// STORE_DRIVER=postgres. Domain types from internal/model stay free of GORM
// tags; this package maps them to its own row structs.
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sakif/clean-blog/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// Unique index names. Postgres reports the violated constraint by name, which
// is how a conflict is attributed to a field.
const (
	idxUsersUsername    = "idx_users_username"
	idxUsersEmail       = "idx_users_email"
	idxUsersGitHubID    = "idx_users_github_id"
	idxPostsAuthorTitle = "idx_posts_author_title"
)

// uniqueViolationCode is SQLSTATE 23505.
const uniqueViolationCode = "23505"

// DB is a GORM-backed store.
type DB struct {
	gorm *gorm.DB
}

// New connects to Postgres using a DSN such as
// "host=localhost user=blog password=blog dbname=blog sslmode=disable"
// and migrates the schema.
func New(dsn string) (*DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{gorm: gdb}
	if err := db.AutoMigrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates all tables.
func (db *DB) AutoMigrate() error {
	if err := db.gorm.AutoMigrate(&userRow{}, &postRow{}, &commentRow{}, &favoriteRow{}, &sessionRow{}); err != nil {
		return fmt.Errorf("postgres: running migrations: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// violatedConstraint returns the name of the unique constraint err violated.
func violatedConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt64(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
