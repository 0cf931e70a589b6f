// Package redis stores login sessions in Redis.
//
// Each session is one key, "session:<id>", holding the JSON-encoded
// model.Session with a TTL equal to its remaining lifetime. An expired
// session simply disappears, so there is nothing to sweep.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/repository"
)

var _ repository.SessionRepository = (*SessionStore)(nil)

const keyPrefix = "session:"

// SessionStore implements repository.SessionRepository.
type SessionStore struct {
	client *goredis.Client
}

// Config holds the connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New connects and pings Redis.
func New(ctx context.Context, cfg Config) (*SessionStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: pinging %s: %w", cfg.Addr, err)
	}
	return &SessionStore{client: client}, nil
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}

func (s *SessionStore) CreateSession(ctx context.Context, session *model.Session) error {
	return s.save(ctx, session)
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("redis: getting session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("redis: decoding session: %w", err)
	}
	return &session, nil
}

// TouchSession rewrites the expiry and TTL of a live session.
func (s *SessionStore) TouchSession(ctx context.Context, id string, expiresAt time.Time) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	session.ExpiresAt = expiresAt
	return s.replace(ctx, session)
}

// replace overwrites an existing session only (SET ... XX), so a logout that
// deletes the key between TouchSession's read and this write wins.
func (s *SessionStore) replace(ctx context.Context, session *model.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return s.DeleteSession(ctx, session.ID)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis: encoding session: %w", err)
	}

	updated, err := s.client.SetXX(ctx, keyPrefix+session.ID, raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: touching session: %w", err)
	}
	if !updated {
		return apperror.NotFound("session", session.ID)
	}
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis: deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions has nothing to do: Redis drops each key when its TTL
// runs out.
func (s *SessionStore) DeleteExpiredSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *SessionStore) save(ctx context.Context, session *model.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return s.DeleteSession(ctx, session.ID)
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis: encoding session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+session.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: saving session for user %d: %w", session.UserID, err)
	}
	return nil
}
