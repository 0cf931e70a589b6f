package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
)

// CookieName is the session cookie. HttpOnly, so page scripts cannot read it.
const CookieName = "session"

// Redirect targets for denied guards.
const (
	LoginPath = "/login"
	HomePath  = "/"
)

// UserLookup resolves the {username} URL segment for RequireSelf.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// Session resolves the session cookie on every request and stores the
// resulting Identity in the request context. It never blocks: a missing or
// dead session simply yields Anonymous, and a dead cookie is cleared.
//
// Chi applies middlewares in a chain: req → Session → RequireAuth → Handler,
// so guards further down always see a freshly re-verified identity.
func Session(authn *Authenticator, secure bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Anonymous

			if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
				resolved, err := authn.Resolve(r.Context(), cookie.Value)
				switch {
				case err == nil:
					id = resolved
				case errors.Is(err, apperror.ErrUnauthorized):
					ClearSessionCookie(w, secure)
				default:
					logger.Error("session lookup failed", slog.String("error", err.Error()))
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth admits only authenticated requests; anonymous ones are sent
// to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d := RequireAuthenticated(IdentityFromContext(r.Context())); !d.Allowed {
			Deny(w, r, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSelf admits only the user named by the {username} URL segment.
// Anonymous requests go to the login page; everyone else goes home.
func RequireSelf(users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if d := RequireAuthenticated(id); !d.Allowed {
				Deny(w, r, d)
				return
			}

			username := strings.ToLower(chi.URLParam(r, "username"))
			var ownerID int64
			owner, err := users.GetUserByUsername(r.Context(), username)
			switch {
			case err == nil:
				ownerID = owner.ID
			case errors.Is(err, apperror.ErrNotFound):
				// unknown user: nobody owns it, RequireOwner denies below
			default:
				logger.Error("guard: user lookup failed",
					slog.String("username", username),
					slog.String("error", err.Error()),
				)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			if d := RequireOwner(id, ownerID); !d.Allowed {
				Deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deny turns a denied Decision into its redirect.
func Deny(w http.ResponseWriter, r *http.Request, d Decision) {
	target := HomePath
	if d.Reason == ReasonAnonymous {
		target = LoginPath
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// SetSessionCookie stores token for maxAge.
// SameSite=Lax: sent on top-level navigations, not on cross-site POSTs.
func SetSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
