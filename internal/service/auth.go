package service

// LOGIN FLOW:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ Authenticator (sessions + signed tokens)
//
// AuthService never touches HTTP: it returns the token and lets the handler
// decide how to carry it (an HttpOnly cookie).

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/auth"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/repository"
)

// AuthService owns users and their credentials.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	sessions  *auth.Authenticator
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	sessions *auth.Authenticator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		sessions:  sessions,
		logger:    logger,
	}
}

// AuthResult bundles the logged-in user with the token naming their new
// session, so the handler can set the cookie and redirect in one step.
type AuthResult struct {
	User    *model.User
	Token   string
	Session *model.Session
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Email    string `form:"email" validate:"omitempty,email,max=254"`
	Username string `form:"username" validate:"required,max=64,username"`
	Password string `form:"password" validate:"required,min=8"`
	BgColor  string `form:"bg_color" validate:"bgcolor"`
	Bio      string `form:"bio" validate:"max=250"`
}

// ProfileInput is the profile edit form. An empty Password keeps the
// current one.
type ProfileInput struct {
	Email    string `form:"email" validate:"omitempty,email,max=254"`
	Username string `form:"username" validate:"required,max=64,username"`
	Password string `form:"password" validate:"omitempty,min=8"`
	BgColor  string `form:"bg_color" validate:"bgcolor"`
	Bio      string `form:"bio" validate:"max=250"`
}

// Register creates an account and logs it in.
//
// The username is lowercased before validation, so "Alice" registers as
// "alice". Uniqueness is decided by the store's UNIQUE constraint, not by a
// lookup first: of two concurrent registrations for the same name exactly
// one succeeds and the other gets apperror.ErrConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = normalizeUsername(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Bio = strings.TrimSpace(in.Bio)
	in.BgColor = normalizeBgColor(in.BgColor)
	if in.BgColor == "" {
		in.BgColor = DefaultBgColor
	}

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or less", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		BgColor:      in.BgColor,
		Bio:          in.Bio,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: registering %q: %w", in.Username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.startSession(ctx, user)
}

// Verify checks a username/password pair.
//
// Failures are apperror.ErrUnauthorized, refined as ErrNoSuchUser (unknown
// username) or ErrBadCredential (wrong password). Accounts created through
// GitHub have no password hash and always fail with ErrBadCredential.
func (s *AuthService) Verify(ctx context.Context, username, password string) (*model.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, apperror.UnknownUser(username)
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UnknownUser(username)
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.BadCredential()
		}
		return nil, fmt.Errorf("service/auth: verifying %q: %w", username, err)
	}

	return user, nil
}

// Login verifies credentials and establishes a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

// Logout invalidates the session immediately.
func (s *AuthService) Logout(ctx context.Context, id auth.Identity) error {
	if err := s.sessions.Revoke(ctx, id.SessionID); err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	s.logger.Info("user logged out", slog.Int64("userID", id.UserID))
	return nil
}

// LoginWithGitHub signs in the local account linked to the GitHub id,
// creating one on first use.
//
// A new account gets a username derived from the GitHub login, made to fit
// the username pattern, with a numeric suffix when taken. Its password hash
// is empty, so it can only sign in through GitHub.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, errors.New("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		return s.startSession(ctx, user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", gh.ID, err)
	}

	user, err = s.createGitHubUser(ctx, gh)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

const maxUsernameAttempts = 20

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	base := usernameFromLogin(gh.Login, gh.ID)
	email := strings.TrimSpace(gh.Email)

	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			suffix := "-" + strconv.Itoa(attempt)
			candidate = truncate(base, MaxUsernameLength-len(suffix)) + suffix
		}

		user := &model.User{
			Username: candidate,
			Email:    email,
			BgColor:  DefaultBgColor,
			GitHubID: gh.ID,
		}
		err := s.users.CreateUser(ctx, user)
		if err == nil {
			s.logger.Info("user registered via GitHub",
				slog.Int64("userID", user.ID),
				slog.String("username", user.Username),
				slog.Int64("githubID", gh.ID),
			)
			return user, nil
		}

		var appErr *apperror.AppError
		if !errors.Is(err, apperror.ErrConflict) || !errors.As(err, &appErr) {
			return nil, fmt.Errorf("service/auth: creating GitHub user %d: %w", gh.ID, err)
		}
		switch appErr.Field {
		case "email":
			// Someone else registered this address; link without it.
			email = ""
			attempt--
		case "github account":
			// A concurrent callback created the link first.
			return s.users.GetUserByGitHubID(ctx, gh.ID)
		}
	}
	return nil, apperror.Conflict("user", "username")
}

// usernameFromLogin maps a GitHub login onto the username pattern.
func usernameFromLogin(login string, githubID int64) string {
	var b strings.Builder
	for _, r := range strings.ToLower(login) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	name := b.String()
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "gh" + name
	}
	if name == "gh" || reservedUsernames[name] {
		name += strconv.FormatInt(githubID, 10)
	}
	return truncate(name, MaxUsernameLength)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// GetUserByID returns the user with the given id.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

// GetUserByUsername looks a user up by (case-insensitive) username.
func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, apperror.NotFound("user", `""`)
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %q: %w", username, err)
	}
	return user, nil
}

// UpdateProfile edits the caller's own profile. Renaming to a taken
// username or email fails with apperror.ErrConflict and changes nothing.
func (s *AuthService) UpdateProfile(ctx context.Context, actorID int64, in ProfileInput) (*model.User, error) {
	if actorID <= 0 {
		return nil, apperror.ErrUnauthorized
	}

	in.Username = normalizeUsername(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Bio = strings.TrimSpace(in.Bio)
	in.BgColor = normalizeBgColor(in.BgColor)

	user, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", actorID, err)
	}
	if in.BgColor == "" {
		in.BgColor = user.BgColor
	}

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or less", auth.MaxPasswordBytes))
	}

	user.Username = in.Username
	user.Email = in.Email
	user.BgColor = in.BgColor
	user.Bio = in.Bio
	if in.Password != "" {
		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/auth: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating user %d: %w", actorID, err)
	}

	s.logger.Info("profile updated",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	token, session, err := s.sessions.Establish(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	s.logger.Info("user logged in",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return &AuthResult{User: user, Token: token, Session: session}, nil
}
