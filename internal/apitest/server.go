// Package apitest provides an in-memory stand-in for the blog REST API,
// served over httptest, for tests of the stores and HTTP handlers. It
// implements the endpoints the dashboard calls with cookie authentication,
// token refresh, role checks and the API's JSON error envelopes.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"blogdash/internal/api"
	"blogdash/internal/models"
)

// Server is a fake blog API. Create it with New; it is closed by t.Cleanup.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	seq       int
	passwords map[string]string // user id -> password
	access    map[string]string // access token -> user id
	refresh   map[string]string // refresh token -> user id
	failures  map[string]failure

	blogs      *collection[models.Blog]
	categories *collection[models.Category]
	tags       *collection[models.Tag]
	users      *collection[models.User]

	refreshCalls atomic.Int32
	requests     atomic.Int32
}

type failure struct {
	status int
	body   string
}

// TB is the subset of testing.TB the server needs.
type TB interface {
	Helper()
	Cleanup(func())
}

// New starts a fake API.
func New(t TB) *Server {
	t.Helper()
	s := &Server{
		passwords:  make(map[string]string),
		access:     make(map[string]string),
		refresh:    make(map[string]string),
		failures:   make(map[string]failure),
		blogs:      newCollection[models.Blog](),
		categories: newCollection[models.Category](),
		tags:       newCollection[models.Tag](),
		users:      newCollection[models.User](),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Client returns an API client for the server using store for credentials.
func (s *Server) Client(store api.CredentialStore) *api.Client {
	return api.New(api.Options{BaseURL: s.URL, Timeout: 5 * time.Second, Store: store})
}

// RefreshCalls reports how many times the refresh endpoint was called.
func (s *Server) RefreshCalls() int { return int(s.refreshCalls.Load()) }

// Requests reports how many requests the server has handled.
func (s *Server) Requests() int { return int(s.requests.Load()) }

// FailNext makes the next request matching method and path answer with
// status and body instead of being handled.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// ExpireAccessTokens invalidates every issued access token. Refresh tokens
// stay valid, so the next call of each session triggers a refresh.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
}

// RevokeAll invalidates every access and refresh token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
	s.refresh = make(map[string]string)
}

// AddUser registers an account and returns it.
func (s *Server) AddUser(name, email, password string, role models.Role) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	u := &models.User{ID: s.nextID("usr"), Name: name, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	s.users.put(u.ID, u)
	s.passwords[u.ID] = password
	return *u
}

// AddCategory creates a category and returns it.
func (s *Server) AddCategory(name, slug string) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c := &models.Category{ID: s.nextID("cat"), Name: name, Slug: slug, CreatedAt: now, UpdatedAt: now}
	s.categories.put(c.ID, c)
	return *c
}

// AddTag creates a tag and returns it.
func (s *Server) AddTag(name, slug string) models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	t := &models.Tag{ID: s.nextID("tag"), Name: name, Slug: slug, CreatedAt: now, UpdatedAt: now}
	s.tags.put(t.ID, t)
	return *t
}

// AddBlog creates a post written by authorID and returns it.
func (s *Server) AddBlog(in models.BlogInput, authorID string) models.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &models.Blog{ID: s.nextID("blg"), CreatedAt: time.Now().UTC()}
	if author, ok := s.users.items[authorID]; ok {
		a := *author
		b.Author = &a
	}
	s.applyBlog(b, in)
	s.blogs.put(b.ID, b)
	return *b
}

// Blog returns the stored post with id.
func (s *Server) Blog(id string) (models.Blog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blogs.items[id]
	if !ok {
		return models.Blog{}, false
	}
	return *b, true
}

// Category returns the stored category with id.
func (s *Server) Category(id string) (models.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories.items[id]
	if !ok {
		return models.Category{}, false
	}
	return *c, true
}

// Tag returns the stored tag with id.
func (s *Server) Tag(id string) (models.Tag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags.items[id]
	if !ok {
		return models.Tag{}, false
	}
	return *t, true
}

// User returns the stored account with id.
func (s *Server) User(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.items[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

// Password returns the stored password of a user.
func (s *Server) Password(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passwords[userID]
}

// Count returns the number of stored records of a collection path
// ("/blog", "/category", "/tag", "/user").
func (s *Server) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch path {
	case "/blog":
		return len(s.blogs.items)
	case "/category":
		return len(s.categories.items)
	case "/tag":
		return len(s.tags.items)
	case "/user":
		return len(s.users.items)
	}
	return 0
}

// Issue signs userID in directly and returns its credentials, as if the
// login endpoint had been called.
func (s *Server) Issue(userID string) *api.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ref := s.issueTokens(userID)
	return &api.Credentials{Cookies: map[string]string{
		api.DefaultAccessCookie:  acc,
		api.DefaultRefreshCookie: ref,
	}}
}

// nextID must be called with mu held.
func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// issueTokens must be called with mu held.
func (s *Server) issueTokens(userID string) (string, string) {
	s.seq++
	acc := "acc-" + strconv.Itoa(s.seq)
	ref := "ref-" + strconv.Itoa(s.seq)
	s.access[acc] = userID
	s.refresh[ref] = userID
	return acc, ref
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countRequests, s.injectFailures)

	r.Post("/login", s.login)
	r.Post("/refresh-token", s.refreshToken)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/logout", s.logout)
		r.Get("/me", s.me)
		r.Put("/me/password", s.changePassword)

		r.Get("/blog", s.listBlogs)
		r.Get("/blog/{id}", s.getBlog)
		r.With(s.require(models.PermWriteBlogs)).Post("/blog", s.createBlog)
		r.With(s.require(models.PermWriteBlogs)).Put("/blog/{id}", s.updateBlog)
		r.With(s.require(models.PermDeleteBlogs)).Delete("/blog/{id}", s.deleteBlog)

		r.Get("/category", s.listCategories)
		r.Get("/category/{id}", s.getCategory)
		r.With(s.require(models.PermManageCategories)).Post("/category", s.createCategory)
		r.With(s.require(models.PermManageCategories)).Put("/category/{id}", s.updateCategory)
		r.With(s.require(models.PermManageCategories)).Delete("/category/{id}", s.deleteCategory)

		r.Get("/tag", s.listTags)
		r.Get("/tag/{id}", s.getTag)
		r.With(s.require(models.PermManageTags)).Post("/tag", s.createTag)
		r.With(s.require(models.PermManageTags)).Put("/tag/{id}", s.updateTag)
		r.With(s.require(models.PermManageTags)).Delete("/tag/{id}", s.deleteTag)

		r.Route("/user", func(r chi.Router) {
			r.Use(s.require(models.PermManageUsers))
			r.Get("/", s.listUsers)
			r.Post("/", s.createUser)
			r.Get("/{id}", s.getUser)
			r.Put("/{id}", s.updateUser)
			r.Delete("/{id}", s.deleteUser)
		})
	})
	return r
}

// --- middleware ---

type actorKey struct{}

func actorFrom(r *http.Request) models.User {
	u, _ := r.Context().Value(actorKey{}).(models.User)
	return u
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		f, ok := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()
		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(api.DefaultAccessCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		s.mu.Lock()
		uid, ok := s.access[c.Value]
		u, exists := s.users.items[uid]
		var actor models.User
		if exists {
			actor = *u
		}
		s.mu.Unlock()
		if !ok || !exists {
			writeError(w, http.StatusUnauthorized, "jwt expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func (s *Server) require(p models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !actorFrom(r).Role.Can(p) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":{"message":"Forbidden resource"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- auth ---

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	var user *models.User
	for _, u := range s.users.items {
		if strings.EqualFold(u.Email, in.Email) && s.passwords[u.ID] == in.Password {
			user = u
			break
		}
	}
	if user == nil {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	acc, ref := s.issueTokens(user.ID)
	out := *user
	s.mu.Unlock()

	setTokenCookies(w, acc, ref)
	writeJSON(w, http.StatusOK, map[string]any{"user": out})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	c, err := r.Cookie(api.DefaultRefreshCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}

	s.mu.Lock()
	uid, ok := s.refresh[c.Value]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}
	delete(s.refresh, c.Value)
	acc, ref := s.issueTokens(uid)
	s.mu.Unlock()

	setTokenCookies(w, acc, ref)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if c, err := r.Cookie(api.DefaultAccessCookie); err == nil {
		delete(s.access, c.Value)
	}
	if c, err := r.Cookie(api.DefaultRefreshCookie); err == nil {
		delete(s.refresh, c.Value)
	}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: api.DefaultAccessCookie, Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: api.DefaultRefreshCookie, Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actorFrom(r))
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var in models.PasswordChange
	if !readJSON(w, r, &in) {
		return
	}
	actor := actorFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.passwords[actor.ID] != in.CurrentPassword {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	s.passwords[actor.ID] = in.NewPassword
	w.WriteHeader(http.StatusNoContent)
}

func setTokenCookies(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, &http.Cookie{Name: api.DefaultAccessCookie, Value: access, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: api.DefaultRefreshCookie, Value: refresh, Path: "/", HttpOnly: true})
}

// --- blogs ---

func (s *Server) listBlogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	items := s.blogs.filter(func(b *models.Blog) bool {
		if st := q.Get("status"); st != "" && string(b.Status) != st {
			return false
		}
		if cid := q.Get("categoryId"); cid != "" && b.CategoryID() != cid {
			return false
		}
		if aid := q.Get("authorId"); aid != "" && !b.AuthoredBy(aid) {
			return false
		}
		return matches(q.Get("search"), b.Title, b.Slug)
	})
	s.mu.Unlock()
	writePage(w, r, items)
}

func (s *Server) getBlog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b, ok := s.blogs.items[chi.URLParam(r, "id")]
	var out models.Blog
	if ok {
		out = *b
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Blog not found")
		return
	}
	// Single posts come wrapped in a data envelope.
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

func (s *Server) createBlog(w http.ResponseWriter, r *http.Request) {
	var in models.BlogInput
	if !readJSON(w, r, &in) {
		return
	}
	actor := actorFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.checkBlog("", in); msg != "" {
		writeError(w, http.StatusConflict, msg)
		return
	}
	if in.Status == models.BlogStatusPublished && !actor.Role.Can(models.PermPublishBlogs) {
		in.Status = models.BlogStatusDraft
	}
	b := &models.Blog{ID: s.nextID("blg"), CreatedAt: time.Now().UTC(), Author: &actor}
	s.applyBlog(b, in)
	s.blogs.put(b.ID, b)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": *b})
}

func (s *Server) updateBlog(w http.ResponseWriter, r *http.Request) {
	var in models.BlogInput
	if !readJSON(w, r, &in) {
		return
	}
	actor := actorFrom(r)
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blogs.items[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Blog not found")
		return
	}
	if actor.Role == models.RoleAuthor && !b.AuthoredBy(actor.ID) {
		writeError(w, http.StatusForbidden, "You can only edit your own posts")
		return
	}
	if msg := s.checkBlog(id, in); msg != "" {
		writeError(w, http.StatusConflict, msg)
		return
	}
	if in.Status != b.Status && !actor.Role.Can(models.PermPublishBlogs) {
		in.Status = b.Status
	}
	s.applyBlog(b, in)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": *b})
}

func (s *Server) deleteBlog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ok := s.blogs.del(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Blog not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkBlog must be called with mu held.
func (s *Server) checkBlog(id string, in models.BlogInput) string {
	for _, other := range s.blogs.items {
		if other.ID != id && other.Slug == in.Slug {
			return "Blog with this slug already exists"
		}
	}
	if _, ok := s.categories.items[in.CategoryID]; !ok {
		return "Category not found"
	}
	return ""
}

// applyBlog must be called with mu held.
func (s *Server) applyBlog(b *models.Blog, in models.BlogInput) {
	b.Title = in.Title
	b.Slug = in.Slug
	b.Description = in.Description
	b.Content = in.Content
	b.Thumbnail = in.Thumbnail
	b.Status = in.Status
	if b.Status == "" {
		b.Status = models.BlogStatusDraft
	}
	b.Category = nil
	if c, ok := s.categories.items[in.CategoryID]; ok {
		cp := *c
		b.Category = &cp
	}
	b.Tags = nil
	for _, tid := range in.TagIDs {
		if t, ok := s.tags.items[tid]; ok {
			b.Tags = append(b.Tags, *t)
		}
	}
	b.UpdatedAt = time.Now().UTC()
}

// --- categories ---

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	s.mu.Lock()
	items := s.categories.filter(func(c *models.Category) bool { return matches(search, c.Name, c.Slug) })
	s.mu.Unlock()
	writePage(w, r, items)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c, ok := s.categories.items[chi.URLParam(r, "id")]
	var out models.Category
	if ok {
		out = *c
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories.items {
		if c.Slug == in.Slug {
			writeError(w, http.StatusConflict, "Category with this slug already exists")
			return
		}
	}
	now := time.Now().UTC()
	c := &models.Category{ID: s.nextID("cat"), Name: in.Name, Slug: in.Slug, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	s.categories.put(c.ID, c)
	writeJSON(w, http.StatusCreated, *c)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if !readJSON(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories.items[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	for _, other := range s.categories.items {
		if other.ID != id && other.Slug == in.Slug {
			writeError(w, http.StatusConflict, "Category with this slug already exists")
			return
		}
	}
	c.Name, c.Slug, c.Description, c.UpdatedAt = in.Name, in.Slug, in.Description, time.Now().UTC()
	writeJSON(w, http.StatusOK, *c)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.blogs.items {
		if b.CategoryID() == id {
			writeError(w, http.StatusConflict, "Category is still used by blogs")
			return
		}
	}
	if !s.categories.del(id) {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- tags ---

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	s.mu.Lock()
	items := s.tags.filter(func(t *models.Tag) bool { return matches(search, t.Name, t.Slug) })
	s.mu.Unlock()
	writePage(w, r, items)
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	t, ok := s.tags.items[chi.URLParam(r, "id")]
	var out models.Tag
	if ok {
		out = *t
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Tag not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var in models.TagInput
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags.items {
		if t.Slug == in.Slug {
			writeError(w, http.StatusConflict, "Tag with this slug already exists")
			return
		}
	}
	now := time.Now().UTC()
	t := &models.Tag{ID: s.nextID("tag"), Name: in.Name, Slug: in.Slug, CreatedAt: now, UpdatedAt: now}
	s.tags.put(t.ID, t)
	writeJSON(w, http.StatusCreated, *t)
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	var in models.TagInput
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags.items[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Tag not found")
		return
	}
	t.Name, t.Slug, t.UpdatedAt = in.Name, in.Slug, time.Now().UTC()
	writeJSON(w, http.StatusOK, *t)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ok := s.tags.del(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Tag not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- users ---

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	s.mu.Lock()
	items := s.users.filter(func(u *models.User) bool { return matches(search, u.Name, u.Email) })
	s.mu.Unlock()
	writePage(w, r, items)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u, ok := s.users.items[chi.URLParam(r, "id")]
	var out models.User
	if ok {
		out = *u
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in models.UserInput
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.checkUser("", in); msg != "" {
		writeError(w, http.StatusConflict, msg)
		return
	}
	if in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": []string{"password should not be empty"}})
		return
	}
	now := time.Now().UTC()
	u := &models.User{ID: s.nextID("usr"), Name: in.Name, Email: in.Email, Role: in.Role, CreatedAt: now, UpdatedAt: now}
	s.users.put(u.ID, u)
	s.passwords[u.ID] = in.Password
	writeJSON(w, http.StatusCreated, *u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var in models.UserInput
	if !readJSON(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.items[id]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if msg := s.checkUser(id, in); msg != "" {
		writeError(w, http.StatusConflict, msg)
		return
	}
	u.Name, u.Email, u.Role, u.UpdatedAt = in.Name, in.Email, in.Role, time.Now().UTC()
	if in.Password != "" {
		s.passwords[id] = in.Password
	}
	writeJSON(w, http.StatusOK, *u)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ok := s.users.del(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkUser must be called with mu held.
func (s *Server) checkUser(id string, in models.UserInput) string {
	if !in.Role.Valid() {
		return "Invalid role"
	}
	for _, other := range s.users.items {
		if other.ID != id && strings.EqualFold(other.Email, in.Email) {
			return "Email already in use"
		}
	}
	return ""
}

// --- helpers ---

// collection keeps records in insertion order.
type collection[T any] struct {
	items map[string]*T
	order []string
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]*T)}
}

func (c *collection[T]) put(id string, v *T) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = v
}

func (c *collection[T]) del(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// filter returns copies of matching records, newest first.
func (c *collection[T]) filter(keep func(*T) bool) []T {
	var out []T
	for i := len(c.order) - 1; i >= 0; i-- {
		v := c.items[c.order[i]]
		if keep(v) {
			out = append(out, *v)
		}
	}
	return out
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	limit := atoiDefault(r.URL.Query().Get("limit"), 10)
	total := len(items)

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	data := items[start:end]
	if data == nil {
		data = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data, "total": total, "page": page, "limit": limit})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"statusCode": status, "message": msg})
}
