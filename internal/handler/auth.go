package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"
	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/auth"
	"github.com/sakif/clean-blog/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler serves login, registration, logout and GitHub sign-in.
//
//   - HandleLogin / HandleRegister   → form POSTs, redirect on success
//   - HandleLogout                   → revoke the session, clear the cookie
//   - HandleMe                       → the current user as JSON
//   - HandleGitHubLogin / Callback   → optional OAuth flow (github may be nil)
type AuthHandler struct {
	auth   *service.AuthService
	github *auth.GitHubProvider
	policy auth.SessionPolicy
	secure bool
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil when GitHub
// sign-in is not configured. secure marks cookies HTTPS-only.
func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	policy auth.SessionPolicy,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		github: github,
		policy: policy,
		secure: secure,
		logger: logger,
	}
}

// HandleHome sends the visitor to their blog, or to the login page.
//
// HTTP: GET /
func (h *AuthHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		redirect(w, r, auth.LoginPath)
		return
	}
	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		logIfInternal(h.logger, "home: loading user", err)
		redirect(w, r, auth.LoginPath)
		return
	}
	redirect(w, r, blogsPath(user.Username))
}

// HandleLoginForm returns pending flash messages.
//
// HTTP: GET /login, GET /register
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	handleFlashes(w, r)
}

// HandleLogin verifies the form credentials and starts a session.
//
// HTTP: POST /login  (form: username, password)
//
// On failure the reason ("user does not exist" or "password incorrect") is
// flashed and the browser is sent back to the form.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apperror.ValidationFailed("form", "malformed form body"))
		return
	}

	res, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		var appErr *apperror.AppError
		if errors.Is(err, apperror.ErrUnauthorized) && errors.As(err, &appErr) {
			addFlash(w, r, appErr.Message)
			redirect(w, r, auth.LoginPath)
			return
		}
		logIfInternal(h.logger, "login failed", err)
		writeError(w, err)
		return
	}

	h.setSession(w, res)
	redirect(w, r, blogsPath(res.User.Username))
}

// HandleRegister creates the account and logs it in.
//
// HTTP: POST /register  (form: email, username, password, bg_color, bio)
//
// A taken username or email is flashed back to the form; invalid input is a
// 400 naming the field.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apperror.ValidationFailed("form", "malformed form body"))
		return
	}

	res, err := h.auth.Register(r.Context(), service.RegisterInput{
		Email:    r.PostFormValue("email"),
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		BgColor:  r.PostFormValue("bg_color"),
		Bio:      r.PostFormValue("bio"),
	})
	if err != nil {
		if flashConflict(w, r, err, "/register") {
			return
		}
		logIfInternal(h.logger, "registration failed", err)
		writeError(w, err)
		return
	}

	h.setSession(w, res)
	redirect(w, r, blogsPath(res.User.Username))
}

// HandleLogout revokes the session server-side, so the old cookie stops
// working even if a copy of it survives.
//
// HTTP: GET|POST /logout  (auth required)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.IdentityFromContext(r.Context())); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	auth.ClearSessionCookie(w, h.secure)
	redirect(w, r, auth.LoginPath)
}

// HandleMe returns the logged-in user's profile.
//
// HTTP: GET /api/me  (auth required)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.ErrUnauthorized)
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		logIfInternal(h.logger, "me: loading user", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// The random state is stored in a short-lived cookie and compared on the
// callback, proving the flow started here and not on an attacker's page.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow and starts a session for
// the linked (or newly created) local account.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		addFlash(w, r, "GitHub sign-in was cancelled")
		redirect(w, r, auth.LoginPath)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		addFlash(w, r, "GitHub sign-in failed, please try again")
		redirect(w, r, auth.LoginPath)
		return
	}

	res, err := h.auth.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		logIfInternal(h.logger, "github callback: login failed", err)
		writeError(w, err)
		return
	}

	h.setSession(w, res)
	redirect(w, r, blogsPath(res.User.Username))
}

func (h *AuthHandler) setSession(w http.ResponseWriter, res *service.AuthResult) {
	auth.SetSessionCookie(w, res.Token, h.policy.MaxAge, h.secure)
}

// flashConflict answers a taken username, email or title on a form POST:
// the message is flashed and the browser goes back to the form. It reports
// whether err was such a conflict.
func flashConflict(w http.ResponseWriter, r *http.Request, err error, form string) bool {
	if !errors.Is(err, apperror.ErrConflict) {
		return false
	}
	addFlash(w, r, conflictMessage(err))
	redirect(w, r, form)
	return true
}

func conflictMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message + ", please choose another"
	}
	return "already taken, please choose another"
}

func blogsPath(username string) string {
	return "/" + url.PathEscape(username) + "/blogs"
}
