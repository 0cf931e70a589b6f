package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/clean-blog/internal/auth"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/service"
)

// FavoriteHandler serves the favorite graph.
type FavoriteHandler struct {
	users     *service.AuthService
	favorites *service.FavoriteService
	logger    *slog.Logger
}

func NewFavoriteHandler(users *service.AuthService, favorites *service.FavoriteService, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		users:     users,
		favorites: favorites,
		logger:    logger,
	}
}

// FavoritesResponse holds both directions of a user's favorite edges, as
// usernames.
type FavoritesResponse struct {
	Favorites []string `json:"favorites"` // users this user favorites
	FavoredBy []string `json:"favoredBy"` // users who favorite this user
}

// HandleList shows whom the user favorites and who favors them.
//
// HTTP: GET /{username}/favorites
func (h *FavoriteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		logIfInternal(h.logger, "favorites: loading user", err)
		writeError(w, err)
		return
	}

	favorites, err := h.favorites.FavoritesOf(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("favorites: listing", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	favoredBy, err := h.favorites.FavoredBy(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("favorites: listing inverse", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FavoritesResponse{
		Favorites: usernames(favorites),
		FavoredBy: usernames(favoredBy),
	})
}

// HandleToggle flips the caller's favorite of {target} and returns to the
// target's blog. An unknown target changes nothing and returns the caller
// to their own blog.
//
// HTTP: GET|POST /{username}/favorite/{target}
func (h *FavoriteHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	res, err := h.favorites.Toggle(r.Context(), actorID, chi.URLParam(r, "target"))
	if err != nil {
		logIfInternal(h.logger, "favorite toggle failed", err)
		writeError(w, err)
		return
	}
	if res.Target == nil {
		redirect(w, r, blogsPath(chi.URLParam(r, "username")))
		return
	}
	redirect(w, r, "/"+url.PathEscape(res.Target.Username)+"/blogs")
}

func usernames(users []model.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names
}
