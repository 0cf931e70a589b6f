package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
)

// ToggleFavorite flips the actorID→targetID edge inside one transaction.
//
// DELETE first: if a row went away the edge existed and is now gone.
// Otherwise INSERT it. Two requests racing to insert the same pair cannot
// both succeed because of the (favoriting_id, favorited_id) primary key; the
// loser gets apperror.Conflict instead of a duplicate edge.
func (db *DB) ToggleFavorite(ctx context.Context, actorID, targetID int64) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning favorite toggle: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM favorites WHERE favoriting_id = ? AND favorited_id = ?`,
		actorID, targetID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing favorite %d→%d: %w", actorID, targetID, err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	favorited := removed == 0
	if favorited {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO favorites (favoriting_id, favorited_id, created_at) VALUES (?, ?, ?)`,
			actorID, targetID, now(),
		)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return false, apperror.Conflict("favorite", "pair")
			}
			return false, fmt.Errorf("sqlite: adding favorite %d→%d: %w", actorID, targetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing favorite toggle: %w", err)
	}
	return favorited, nil
}

// FavoritesOf lists the users userID favorites, in edge insertion order.
func (db *DB) FavoritesOf(ctx context.Context, userID int64) ([]model.User, error) {
	return db.listFavoriteUsers(ctx,
		`SELECT `+prefixed("u", userColumns)+`
		 FROM favorites f JOIN users u ON u.id = f.favorited_id
		 WHERE f.favoriting_id = ?
		 ORDER BY f.created_at, u.id`,
		userID,
	)
}

// FavoredBy is the inverse view: the users that favorite userID.
func (db *DB) FavoredBy(ctx context.Context, userID int64) ([]model.User, error) {
	return db.listFavoriteUsers(ctx,
		`SELECT `+prefixed("u", userColumns)+`
		 FROM favorites f JOIN users u ON u.id = f.favoriting_id
		 WHERE f.favorited_id = ?
		 ORDER BY f.created_at, u.id`,
		userID,
	)
}

func (db *DB) listFavoriteUsers(ctx context.Context, query string, userID int64) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites for user %d: %w", userID, err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning favorite user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating favorites: %w", err)
	}
	return users, nil
}
