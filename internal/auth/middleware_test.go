package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserLookup map[string]int64

func (f fakeUserLookup) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	id, ok := f[username]
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	return &model.User{ID: id, Username: username}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newGuardedRouter mirrors the server's wiring: Session on everything,
// RequireAuth on /private, RequireSelf on /{username}/profile.
func newGuardedRouter(a *Authenticator) http.Handler {
	users := fakeUserLookup{"alice": 1, "bob": 2}
	ok := func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		w.Header().Set("X-User", id.SessionID)
		w.WriteHeader(http.StatusOK)
	}

	r := chi.NewRouter()
	r.Use(Session(a, false, discardLogger()))
	r.Get("/public", ok)
	r.With(RequireAuth).Get("/private", ok)
	r.With(RequireSelf(users, discardLogger())).Get("/{username}/profile", ok)
	return r
}

func do(t *testing.T, h http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth_AnonymousRedirectsToLogin(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, DefaultSessionPolicy)
	h := newGuardedRouter(a)

	rec := do(t, h, "/private", "")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestRequireAuth_AuthenticatedPasses(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, DefaultSessionPolicy)
	h := newGuardedRouter(a)
	token, session, err := a.Establish(context.Background(), 1)
	require.NoError(t, err)

	rec := do(t, h, "/private", token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.ID, rec.Header().Get("X-User"))
}

func TestSession_RevokedCookieIsClearedAndAnonymous(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, DefaultSessionPolicy)
	h := newGuardedRouter(a)
	token, session, err := a.Establish(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, a.Revoke(context.Background(), session.ID))

	rec := do(t, h, "/public", token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-User"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)

	rec = do(t, h, "/private", token)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestRequireSelf(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, DefaultSessionPolicy)
	h := newGuardedRouter(a)
	aliceToken, _, err := a.Establish(context.Background(), 1)
	require.NoError(t, err)

	cases := []struct {
		name     string
		path     string
		token    string
		code     int
		location string
	}{
		{"owner", "/alice/profile", aliceToken, http.StatusOK, ""},
		{"owner, mixed case url", "/Alice/profile", aliceToken, http.StatusOK, ""},
		{"other user", "/bob/profile", aliceToken, http.StatusSeeOther, HomePath},
		{"unknown user", "/mallory/profile", aliceToken, http.StatusSeeOther, HomePath},
		{"anonymous", "/alice/profile", "", http.StatusSeeOther, LoginPath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.path, tc.token)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 5, SessionID: "s"})
	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)
}
