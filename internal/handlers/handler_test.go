// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// The blog API is faked with apitest; sessions live in memory unless a test
// asks for Valkey, in which case it is skipped when Valkey is unavailable.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"blogdash/internal/apitest"
	"blogdash/internal/middleware"
	"blogdash/internal/models"
	"blogdash/internal/render"
	"blogdash/internal/session"
	"blogdash/internal/store"
)

const testPassword = "Secret123"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "session:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

// memActivity is an in-memory ActivityLog.
type memActivity struct {
	mu      sync.Mutex
	entries []store.Activity
}

func (m *memActivity) Record(_ context.Context, a store.Activity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.entries = append([]store.Activity{a}, m.entries...)
}

func (m *memActivity) Recent(_ context.Context, limit int) ([]store.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) < limit {
		limit = len(m.entries)
	}
	return append([]store.Activity(nil), m.entries[:limit]...), nil
}

func (m *memActivity) last() (store.Activity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return store.Activity{}, false
	}
	return m.entries[0], true
}

// memThumbnails is an in-memory Thumbnails store.
type memThumbnails struct {
	mu      sync.Mutex
	stored  map[string][]byte
	deleted []string
}

func newMemThumbnails() *memThumbnails {
	return &memThumbnails{stored: make(map[string][]byte)}
}

func (m *memThumbnails) PutThumbnail(_ context.Context, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := fmt.Sprintf("https://cdn.test/thumbnails/%d.jpg", len(m.stored)+1)
	m.stored[u] = data
	return u, nil
}

func (m *memThumbnails) DeleteURL(_ context.Context, rawURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, rawURL)
	delete(m.stored, rawURL)
	return nil
}

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	API      *apitest.Server
	Sessions *apitest.Sessions
	Activity *memActivity
	Renderer *render.Renderer
	Remote   *store.Remote
	Admin    *Admin
	Auth     *Auth
}

// newTestEnv creates a complete test environment backed by a fake API.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	renderer, err := render.New(false)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	srv := apitest.New(t)
	sessions := apitest.NewSessions()
	remote := store.NewRemote(srv.Client(sessions), nil)
	activity := &memActivity{}

	return &testEnv{
		API:      srv,
		Sessions: sessions,
		Activity: activity,
		Renderer: renderer,
		Remote:   remote,
		Admin:    NewAdmin(renderer, sessions, remote, activity, nil),
		Auth:     NewAuth(renderer, sessions, remote.Auth),
	}
}

// signIn registers an account with role on the fake API and returns a
// live session for it.
func (e *testEnv) signIn(t *testing.T, role models.Role) *session.Data {
	t.Helper()
	name := "Test " + role.Label()
	email := strings.ToLower(role.Label()) + "@blogdash.test"
	u := e.API.AddUser(name, email, testPassword, role)
	return e.Sessions.SignIn(e.API, &session.Data{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
	})
}

// newRequest builds a request as sess. A non-nil form is sent urlencoded.
func newRequest(method, target string, form url.Values, sess *session.Data) *http.Request {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if sess != nil {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
	}
	return req
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// flashesOf returns the notifications a response queued for the next page.
func flashesOf(rec *httptest.ResponseRecorder) []render.Flash {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return render.PopFlashes(httptest.NewRecorder(), req)
}

// hasFlash reports whether rec queued a flash of typ containing msg.
func hasFlash(rec *httptest.ResponseRecorder, typ, msg string) bool {
	for _, f := range flashesOf(rec) {
		if f.Type == typ && strings.Contains(f.Message, msg) {
			return true
		}
	}
	return false
}

// parseBody parses the response body as HTML.
func parseBody(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("parse body: %v", err)
	}
	return doc
}

// assertRedirect checks a 303 to want.
func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d (body: %.300s)", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != want {
		t.Errorf("Location: got %q, want %q", loc, want)
	}
}

// assertExpired checks that the session was ended and the user sent to
// the login page.
func assertExpired(t *testing.T, env *testEnv, rec *httptest.ResponseRecorder, sess *session.Data) {
	t.Helper()
	assertRedirect(t, rec, middleware.LoginPath)
	if !hasFlash(rec, render.FlashWarning, "session has expired") {
		t.Error("expected a session-expired warning flash")
	}
	if _, ok := env.Sessions.Lookup(sess.ID); ok {
		t.Error("expired session was not destroyed")
	}
}
