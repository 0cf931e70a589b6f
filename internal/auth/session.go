package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/repository"
)

// Identity is the result of resolving a request's session.
// The zero value is Anonymous.
type Identity struct {
	UserID    int64
	SessionID string
}

// Anonymous is the identity of a request with no valid session.
var Anonymous = Identity{}

func (i Identity) Authenticated() bool {
	return i.UserID != 0 && i.SessionID != ""
}

// SessionPolicy bounds how long a session lives.
//
// IdleTimeout slides: each resolved request pushes expiry to now+IdleTimeout.
// MaxAge is absolute from creation and is never extended.
type SessionPolicy struct {
	IdleTimeout time.Duration
	MaxAge      time.Duration
}

// DefaultSessionPolicy is 24h idle, 30 days absolute.
var DefaultSessionPolicy = SessionPolicy{
	IdleTimeout: 24 * time.Hour,
	MaxAge:      30 * 24 * time.Hour,
}

// touchGranularity skips the store write when the sliding expiry would move
// by less than this, so a burst of requests costs one write.
const touchGranularity = time.Minute

// Authenticator establishes, resolves and revokes server-side sessions.
type Authenticator struct {
	tokens   *TokenService
	sessions repository.SessionRepository
	policy   SessionPolicy
	now      func() time.Time
}

func NewAuthenticator(tokens *TokenService, sessions repository.SessionRepository, policy SessionPolicy) *Authenticator {
	if policy.MaxAge <= 0 {
		policy.MaxAge = DefaultSessionPolicy.MaxAge
	}
	if policy.IdleTimeout > policy.MaxAge {
		policy.IdleTimeout = policy.MaxAge
	}
	return &Authenticator{
		tokens:   tokens,
		sessions: sessions,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Policy returns the effective session policy.
func (a *Authenticator) Policy() SessionPolicy {
	return a.policy
}

// Establish creates a session for userID and returns the signed token that
// names it. The token itself expires at MaxAge; the idle timeout is enforced
// by the stored session.
func (a *Authenticator) Establish(ctx context.Context, userID int64) (string, *model.Session, error) {
	if userID <= 0 {
		return "", nil, fmt.Errorf("auth: establishing session: invalid user id %d", userID)
	}

	now := a.now()
	session := &model.Session{
		ID:        xid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: a.expiry(now, now),
	}
	if err := a.sessions.CreateSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("auth: storing session: %w", err)
	}

	token, err := a.tokens.Generate(userID, session.ID, a.policy.MaxAge)
	if err != nil {
		_ = a.sessions.DeleteSession(ctx, session.ID)
		return "", nil, err
	}
	return token, session, nil
}

// Resolve maps a token to the identity it currently grants.
//
// A token is honoured only while its session row exists, belongs to the same
// user and has not expired. Every failure is reported as
// apperror.ErrUnauthorized; callers treat the request as Anonymous.
func (a *Authenticator) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Anonymous, apperror.ErrUnauthorized
	}
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return Anonymous, fmt.Errorf("%w: %v", apperror.ErrUnauthorized, err)
	}

	session, err := a.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return Anonymous, fmt.Errorf("%w: session revoked", apperror.ErrUnauthorized)
		}
		return Anonymous, fmt.Errorf("auth: loading session: %w", err)
	}
	if session.UserID != claims.UserID {
		return Anonymous, fmt.Errorf("%w: session user mismatch", apperror.ErrUnauthorized)
	}

	now := a.now()
	if session.Expired(now) {
		if err := a.sessions.DeleteSession(ctx, session.ID); err != nil {
			return Anonymous, fmt.Errorf("auth: deleting expired session: %w", err)
		}
		return Anonymous, fmt.Errorf("%w: session expired", apperror.ErrUnauthorized)
	}

	if next := a.expiry(session.CreatedAt, now); next.Sub(session.ExpiresAt) >= touchGranularity {
		if err := a.sessions.TouchSession(ctx, session.ID, next); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return Anonymous, fmt.Errorf("%w: session revoked", apperror.ErrUnauthorized)
			}
			return Anonymous, fmt.Errorf("auth: touching session: %w", err)
		}
	}

	return Identity{UserID: session.UserID, SessionID: session.ID}, nil
}

// Revoke deletes the session. Revoking an unknown session is not an error.
func (a *Authenticator) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := a.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("auth: revoking session: %w", err)
	}
	return nil
}

// Sweep deletes every session that has expired, including ones whose cookie
// will never be presented again.
func (a *Authenticator) Sweep(ctx context.Context) (int64, error) {
	n, err := a.sessions.DeleteExpiredSessions(ctx, a.now())
	if err != nil {
		return 0, fmt.Errorf("auth: sweeping sessions: %w", err)
	}
	return n, nil
}

// expiry is min(now+IdleTimeout, createdAt+MaxAge). A zero IdleTimeout
// disables the sliding window.
func (a *Authenticator) expiry(createdAt, now time.Time) time.Time {
	hard := createdAt.Add(a.policy.MaxAge)
	if a.policy.IdleTimeout <= 0 {
		return hard
	}
	if idle := now.Add(a.policy.IdleTimeout); idle.Before(hard) {
		return idle
	}
	return hard
}
