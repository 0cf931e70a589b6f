package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/clean-blog/internal/auth"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/service"
)

// ProfileHandler lets a user view and edit their own profile.
// Both routes sit behind auth.RequireSelf.
type ProfileHandler struct {
	users  *service.AuthService
	logger *slog.Logger
}

func NewProfileHandler(users *service.AuthService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, logger: logger}
}

// ProfileResponse is the caller's own user record plus pending flash
// messages from a rejected edit.
type ProfileResponse struct {
	*model.User
	Flashes []string `json:"flashes"`
}

// HandleProfile returns the caller's profile.
//
// HTTP: GET /{username}/profile
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.GetUserByID(r.Context(), actorID)
	if err != nil {
		logIfInternal(h.logger, "profile: loading user", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{User: user, Flashes: popFlashes(w, r)})
}

// HandleUpdate saves the profile form. A rename moves the profile URL, so
// the redirect uses the new username.
//
// HTTP: POST /{username}/profile  (form: email, username, password, bg_color, bio)
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.UpdateProfile(r.Context(), actorID, service.ProfileInput{
		Email:    r.PostFormValue("email"),
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		BgColor:  r.PostFormValue("bg_color"),
		Bio:      r.PostFormValue("bio"),
	})
	if err != nil {
		if flashConflict(w, r, err, r.URL.Path) {
			return
		}
		logIfInternal(h.logger, "profile update failed", err)
		writeError(w, err)
		return
	}
	redirect(w, r, "/"+url.PathEscape(user.Username)+"/profile")
}
