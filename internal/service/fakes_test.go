package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sakif/clean-blog/internal/apperror"
	"github.com/sakif/clean-blog/internal/auth"
	"github.com/sakif/clean-blog/internal/model"
	"github.com/sakif/clean-blog/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is an in-memory repository.Store. It enforces the same
// uniqueness rules as the SQL schemas (username, email, github id, title per
// author, favorite pair) so conflict paths can be tested without a database.

type fakeStore struct {
	mu sync.Mutex

	users     map[int64]model.User
	posts     map[int64]model.Post
	comments  []model.Comment
	favorites map[[2]int64]time.Time
	sessions  map[string]model.Session
	nextID    int64
	clock     time.Time

	// set to simulate a store failure
	failWith error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[int64]model.User),
		posts:     make(map[int64]model.Post),
		favorites: make(map[[2]int64]time.Time),
		sessions:  make(map[string]model.Session),
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so ordering is deterministic.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Close() error { return nil }

// --- users ---

func (f *fakeStore) userConflict(u *model.User) error {
	for _, other := range f.users {
		if other.ID == u.ID {
			continue
		}
		switch {
		case other.Username == u.Username:
			return apperror.Conflict("user", "username")
		case u.Email != "" && other.Email == u.Email:
			return apperror.Conflict("user", "email")
		case u.GitHubID != 0 && other.GitHubID == u.GitHubID:
			return apperror.Conflict("user", "github account")
		}
	}
	return nil
}

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if err := f.userConflict(u); err != nil {
		return err
	}
	u.ID = f.id()
	u.CreatedAt = f.tick()
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = *u
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return &u, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return f.findUser(username, func(u model.User) bool { return u.Username == username })
}

func (f *fakeStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	return f.findUser(strconv.FormatInt(githubID, 10), func(u model.User) bool { return u.GitHubID == githubID })
}

func (f *fakeStore) findUser(key string, match func(model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeStore) UpdateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return apperror.NotFound("user", strconv.FormatInt(u.ID, 10))
	}
	if err := f.userConflict(u); err != nil {
		return err
	}
	u.UpdatedAt = f.tick()
	f.users[u.ID] = *u
	return nil
}

// --- posts ---

func (f *fakeStore) titleTaken(p *model.Post) bool {
	for _, other := range f.posts {
		if other.ID != p.ID && other.AuthorID == p.AuthorID && other.Title == p.Title {
			return true
		}
	}
	return false
}

func (f *fakeStore) CreatePost(_ context.Context, p *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.titleTaken(p) {
		return apperror.Conflict("post", "title")
	}
	p.ID = f.id()
	p.CreatedAt = f.tick()
	p.UpdatedAt = p.CreatedAt
	f.posts[p.ID] = *p
	return nil
}

func (f *fakeStore) GetPostByID(_ context.Context, id int64) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", strconv.FormatInt(id, 10))
	}
	return &p, nil
}

func (f *fakeStore) ListPostsByAuthor(_ context.Context, authorID int64, opts repository.ListOptions) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Post
	for _, p := range f.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) UpdatePost(_ context.Context, p *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[p.ID]; !ok {
		return apperror.NotFound("post", strconv.FormatInt(p.ID, 10))
	}
	if f.titleTaken(p) {
		return apperror.Conflict("post", "title")
	}
	p.UpdatedAt = f.tick()
	f.posts[p.ID] = *p
	return nil
}

func (f *fakeStore) DeletePost(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("post", strconv.FormatInt(id, 10))
	}
	delete(f.posts, id)
	kept := f.comments[:0]
	for _, c := range f.comments {
		if c.PostID != id {
			kept = append(kept, c)
		}
	}
	f.comments = kept
	return nil
}

// --- comments ---

func (f *fakeStore) CreateComment(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[c.PostID]; !ok {
		return apperror.NotFound("post", strconv.FormatInt(c.PostID, 10))
	}
	c.ID = f.id()
	c.CreatedAt = f.tick()
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeStore) ListCommentsByPost(_ context.Context, postID int64) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Comment
	for _, c := range f.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- favorites ---

func (f *fakeStore) ToggleFavorite(_ context.Context, actorID, targetID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{actorID, targetID}
	if _, ok := f.favorites[key]; ok {
		delete(f.favorites, key)
		return false, nil
	}
	f.favorites[key] = f.tick()
	return true, nil
}

func (f *fakeStore) FavoritesOf(_ context.Context, userID int64) ([]model.User, error) {
	return f.favoriteUsers(func(k [2]int64) (int64, bool) { return k[1], k[0] == userID })
}

func (f *fakeStore) FavoredBy(_ context.Context, userID int64) ([]model.User, error) {
	return f.favoriteUsers(func(k [2]int64) (int64, bool) { return k[0], k[1] == userID })
}

func (f *fakeStore) favoriteUsers(pick func([2]int64) (int64, bool)) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type edge struct {
		user model.User
		at   time.Time
	}
	var edges []edge
	for k, at := range f.favorites {
		if other, ok := pick(k); ok {
			edges = append(edges, edge{f.users[other], at})
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].at.Before(edges[j].at) })
	out := make([]model.User, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.user)
	}
	return out, nil
}

// --- sessions ---

func (f *fakeStore) CreateSession(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	return &s, nil
}

func (f *fakeStore) TouchSession(_ context.Context, id string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return apperror.NotFound("session", id)
	}
	s.ExpiresAt = expiresAt
	f.sessions[id] = s
	return nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if !s.ExpiresAt.After(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

type testServices struct {
	store     *fakeStore
	authn     *auth.Authenticator
	auth      *AuthService
	posts     *PostService
	favorites *FavoriteService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	store := newFakeStore()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	// Cost 4 is the bcrypt minimum; keeps tests fast.
	passwords, err := auth.NewPasswordServiceWithCost(4)
	if err != nil {
		t.Fatalf("NewPasswordServiceWithCost: %v", err)
	}
	authn := auth.NewAuthenticator(tokens, store, auth.DefaultSessionPolicy)

	return &testServices{
		store:     store,
		authn:     authn,
		auth:      NewAuthService(store, passwords, authn, logger),
		posts:     NewPostService(store, store, store, logger),
		favorites: NewFavoriteService(store, store, logger),
	}
}

// registerUser registers username with password "password123".
func (ts *testServices) registerUser(t *testing.T, username string) *model.User {
	t.Helper()
	res, err := ts.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register(%q) error = %v", username, err)
	}
	return res.User
}

func (ts *testServices) createPost(t *testing.T, authorID int64, title string) *model.Post {
	t.Helper()
	post, err := ts.posts.CreatePost(context.Background(), authorID, PostInput{
		Title:    title,
		Subtitle: "subtitle",
		Body:     "body",
		ImgURL:   "https://example.com/img.png",
	})
	if err != nil {
		t.Fatalf("CreatePost(%q) error = %v", title, err)
	}
	return post
}
