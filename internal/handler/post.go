package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/auth"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/service"
)

// PostHandler serves the per-user blog pages: listings, single posts,
// comments, and the author-only create/edit/delete forms.
//
// Routes under /{username}/ that change content are mounted behind
// auth.RequireSelf, so by the time these handlers run the caller IS
// {username}. The post's own author is still checked by PostService, which
// stops alice from editing bob's post via /alice/edit-blog/{bob's id}.
type PostHandler struct {
	users  *service.AuthService
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(users *service.AuthService, posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		users:  users,
		posts:  posts,
		logger: logger,
	}
}

// BlogResponse is a user's blog listing. The page is public, so it carries
// the public view of the user.
type BlogResponse struct {
	User  model.PublicUser `json:"user"`
	Posts []model.Post     `json:"posts"`
}

// HandleRecent lists the user's four newest posts.
//
// HTTP: GET /{username}/blogs
func (h *PostHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.posts.RecentPosts)
}

// HandleAll lists every post by the user, newest first.
//
// HTTP: GET /{username}/all-blogs
func (h *PostHandler) HandleAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.posts.AllPosts)
}

func (h *PostHandler) list(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, authorID int64) ([]model.Post, error)) {
	user, err := h.users.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		logIfInternal(h.logger, "blog: loading user", err)
		writeError(w, err)
		return
	}

	posts, err := fetch(r.Context(), user.ID)
	if err != nil {
		logIfInternal(h.logger, "blog: listing posts", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BlogResponse{User: user.Public(), Posts: posts})
}

// HandleDetail shows one post with its comments.
//
// HTTP: GET /{username}/blog/{id}
//
// The post must belong to {username}; /bob/blog/{alice's post} is a 404.
func (h *PostHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.detail(r)
	if err != nil {
		logIfInternal(h.logger, "blog: loading post", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *PostHandler) detail(r *http.Request) (*model.PostDetail, error) {
	postID, err := pathID(chi.URLParam(r, "id"), "id")
	if err != nil {
		return nil, err
	}
	detail, err := h.posts.GetPostDetail(r.Context(), postID)
	if err != nil {
		return nil, err
	}
	if detail.AuthorUsername != strings.ToLower(chi.URLParam(r, "username")) {
		return nil, apperror.NotFound("post", strconv.FormatInt(postID, 10))
	}
	return detail, nil
}

// HandleComment adds a comment by the logged-in user.
//
// HTTP: POST /{username}/blog/{id}  (form: text; auth required)
func (h *PostHandler) HandleComment(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	detail, err := h.detail(r)
	if err != nil {
		logIfInternal(h.logger, "comment: loading post", err)
		writeError(w, err)
		return
	}

	if _, err := h.posts.AddComment(r.Context(), actorID, detail.ID, r.PostFormValue("text")); err != nil {
		logIfInternal(h.logger, "comment failed", err)
		writeError(w, err)
		return
	}
	redirect(w, r, postPath(detail.AuthorUsername, detail.ID))
}

// HandleNewForm returns pending flash messages for the new-post form.
//
// HTTP: GET /{username}/blog-post
func (h *PostHandler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	handleFlashes(w, r)
}

// HandleCreate publishes a post.
//
// HTTP: POST /{username}/blog-post  (form: title, subtitle, body, img_url)
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	post, err := h.posts.CreatePost(r.Context(), actorID, postForm(r))
	if err != nil {
		if flashConflict(w, r, err, r.URL.Path) {
			return
		}
		logIfInternal(h.logger, "create post failed", err)
		writeError(w, err)
		return
	}
	redirect(w, r, postPath(chi.URLParam(r, "username"), post.ID))
}

// EditFormResponse is the post being edited plus pending flash messages.
type EditFormResponse struct {
	*model.Post
	Flashes []string `json:"flashes"`
}

// HandleEditForm returns the post being edited.
//
// HTTP: GET /{username}/edit-blog/{id}
func (h *PostHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	postID, err := pathID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, err)
		return
	}
	post, err := h.posts.GetPost(r.Context(), postID)
	if err != nil {
		logIfInternal(h.logger, "edit form: loading post", err)
		writeError(w, err)
		return
	}
	if post.AuthorID != actorID {
		writeError(w, apperror.Forbidden("only the author can edit this post"))
		return
	}
	writeJSON(w, http.StatusOK, EditFormResponse{Post: post, Flashes: popFlashes(w, r)})
}

// HandleEdit saves an edited post. Only its author may do this.
//
// HTTP: POST /{username}/edit-blog/{id}
func (h *PostHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	postID, err := pathID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.UpdatePost(r.Context(), actorID, postID, postForm(r))
	if err != nil {
		if flashConflict(w, r, err, r.URL.Path) {
			return
		}
		logIfInternal(h.logger, "edit post failed", err)
		writeError(w, err)
		return
	}
	redirect(w, r, postPath(chi.URLParam(r, "username"), post.ID))
}

// HandleDelete removes a post and its comments. Only its author may do this.
//
// HTTP: GET|POST /{username}/delete/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	postID, err := pathID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.posts.DeletePost(r.Context(), actorID, postID); err != nil {
		logIfInternal(h.logger, "delete post failed", err)
		writeError(w, err)
		return
	}
	redirect(w, r, "/"+url.PathEscape(strings.ToLower(chi.URLParam(r, "username")))+"/all-blogs")
}

func postForm(r *http.Request) service.PostInput {
	return service.PostInput{
		Title:    r.PostFormValue("title"),
		Subtitle: r.PostFormValue("subtitle"),
		Body:     r.PostFormValue("body"),
		ImgURL:   r.PostFormValue("img_url"),
	}
}

func postPath(username string, postID int64) string {
	return "/" + url.PathEscape(strings.ToLower(username)) + "/blog/" + strconv.FormatInt(postID, 10)
}
