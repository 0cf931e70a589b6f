// Package auth provides password hashing, signed session tokens, the
// server-side session authenticator, access guards and GitHub sign-in.
//
// SESSION FLOW OVERVIEW:
//  1. POST /login verifies the password, then Authenticator.Establish stores a
//     session row and signs a JWT naming it
//  2. The JWT travels in an HttpOnly cookie
//  3. On every request the Session middleware validates the signature, loads
//     the session row and slides its idle expiry
//  4. POST /logout deletes the row, so the token is dead immediately even
//     though its signature is still valid
//
// The JWT alone is not trusted: it only names a session. The session store is
// the authority, which is what makes logout immediate.
//
// JWT STRUCTURE:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"<user id>","jti":"<session id>","exp":...,"iss":"clean-blog"}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "clean-blog"

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 16

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// TokenService signs and verifies session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: session secret must be at least %d characters", MinSecretLength)
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// TokenClaims is what a verified token asserts.
type TokenClaims struct {
	UserID    int64
	SessionID string
	ExpiresAt time.Time
}

// Generate signs a token binding userID to sessionID, valid for ttl.
func (s *TokenService) Generate(userID int64, sessionID string, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", errors.New("auth: session id is required")
	}
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    tokenIssuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, issuer, algorithm and expiry, and returns the
// claims. It does not consult the session store.
//
// jwt.WithValidMethods pins HS256 so a token declaring "none" or an
// asymmetric algorithm is rejected before the key is ever used.
func (s *TokenService) Validate(tokenStr string) (TokenClaims, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return TokenClaims{}, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return TokenClaims{}, fmt.Errorf("%w: bad subject %q", ErrTokenInvalid, c.Subject)
	}
	if c.ID == "" {
		return TokenClaims{}, fmt.Errorf("%w: no session id", ErrTokenInvalid)
	}

	return TokenClaims{
		UserID:    userID,
		SessionID: c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
