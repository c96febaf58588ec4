package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"blogdash/internal/api"
	"blogdash/internal/cache"
	"blogdash/internal/models"
	"blogdash/internal/session"
)

// newTestSession creates a session.Data value suitable for testing.
func newTestSession(role models.Role) *session.Data {
	return &session.Data{
		ID:     "sess-1",
		UserID: "user-1",
		Name:   "Test User",
		Email:  "test@blogdash.local",
		Role:   role,
	}
}

// ctxWithSession returns a context carrying the given session data, the
// state after LoadSession has run.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return WithSession(ctx, data)
}

// okHandler is a simple handler that records whether it was invoked.
func okHandler() (http.Handler, *bool) {
	var called bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return h, &called
}

// fakeLoader implements SessionLoader without Valkey.
type fakeLoader struct {
	data *session.Data
	err  error
}

func (f fakeLoader) Get(context.Context, *http.Request) (*session.Data, error) {
	return f.data, f.err
}

// ---------- SessionFromCtx ----------

func TestSessionFromCtx(t *testing.T) {
	t.Run("returns session when present", func(t *testing.T) {
		sess := newTestSession(models.RoleAdministrator)
		got := SessionFromCtx(ctxWithSession(context.Background(), sess))
		if got == nil {
			t.Fatal("expected non-nil session, got nil")
		}
		if got.Email != sess.Email || got.Role != sess.Role {
			t.Errorf("got %+v, want %+v", got, sess)
		}
	})

	t.Run("returns nil when not present", func(t *testing.T) {
		if got := SessionFromCtx(context.Background()); got != nil {
			t.Errorf("expected nil session, got %+v", got)
		}
	})

	t.Run("returns nil for wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), SessionKey, "not-a-session")
		if got := SessionFromCtx(ctx); got != nil {
			t.Errorf("expected nil for wrong type, got %+v", got)
		}
	})
}

// ---------- LoadSession ----------

func TestLoadSession(t *testing.T) {
	t.Run("attaches session, API session and cache user", func(t *testing.T) {
		sess := newTestSession(models.RoleEditor)

		var gotSession *session.Data
		var apiSession, cacheUser string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotSession = SessionFromCtx(r.Context())
			apiSession = api.SessionFromContext(r.Context())
			cacheUser = cache.UserFromContext(r.Context())
		})

		handler := LoadSession(fakeLoader{data: sess})(inner)
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin", nil))

		if gotSession != sess {
			t.Errorf("session: got %+v", gotSession)
		}
		if apiSession != "sess-1" {
			t.Errorf("api session: got %q, want sess-1", apiSession)
		}
		if cacheUser != "user-1" {
			t.Errorf("cache user: got %q, want user-1", cacheUser)
		}
	})

	t.Run("no session proceeds anonymously", func(t *testing.T) {
		var gotSession *session.Data
		var called bool
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			gotSession = SessionFromCtx(r.Context())
		})

		LoadSession(fakeLoader{})(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if !called || gotSession != nil {
			t.Errorf("called=%v session=%+v", called, gotSession)
		}
	})

	t.Run("store error proceeds anonymously", func(t *testing.T) {
		var gotSession *session.Data
		var called bool
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			gotSession = SessionFromCtx(r.Context())
		})

		loader := fakeLoader{data: newTestSession(models.RoleAdministrator), err: errors.New("valkey down")}
		LoadSession(loader)(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if !called || gotSession != nil {
			t.Errorf("called=%v session=%+v", called, gotSession)
		}
	})
}

// ---------- RequireAuth ----------

func TestRequireAuth(t *testing.T) {
	t.Run("redirects to login when no session", func(t *testing.T) {
		inner, called := okHandler()
		rr := httptest.NewRecorder()
		RequireAuth(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))

		if *called {
			t.Error("next handler should NOT have been called")
		}
		if rr.Code != http.StatusSeeOther {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusSeeOther)
		}
		if loc := rr.Header().Get("Location"); loc != LoginPath {
			t.Errorf("redirect location: got %q, want %q", loc, LoginPath)
		}
	})

	t.Run("HTMX requests get HX-Redirect", func(t *testing.T) {
		inner, _ := okHandler()
		req := httptest.NewRequest(http.MethodGet, "/admin/blogs", nil)
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()
		RequireAuth(inner).ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("status: got %d, want 204", rr.Code)
		}
		if got := rr.Header().Get("HX-Redirect"); got != LoginPath {
			t.Errorf("HX-Redirect: got %q, want %q", got, LoginPath)
		}
	})

	t.Run("passes through when session exists", func(t *testing.T) {
		inner, called := okHandler()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(ctxWithSession(req.Context(), newTestSession(models.RoleSubscriber)))
		rr := httptest.NewRecorder()
		RequireAuth(inner).ServeHTTP(rr, req)

		if !*called || rr.Code != http.StatusOK {
			t.Errorf("called=%v status=%d", *called, rr.Code)
		}
	})
}

// ---------- RequireRole ----------

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     models.Role
		perm     models.Permission
		noSess   bool
		wantCode int
	}{
		{"administrator manages users", models.RoleAdministrator, models.PermManageUsers, false, http.StatusOK},
		{"editor cannot manage users", models.RoleEditor, models.PermManageUsers, false, http.StatusForbidden},
		{"editor manages tags", models.RoleEditor, models.PermManageTags, false, http.StatusOK},
		{"author writes blogs", models.RoleAuthor, models.PermWriteBlogs, false, http.StatusOK},
		{"author cannot manage categories", models.RoleAuthor, models.PermManageCategories, false, http.StatusForbidden},
		{"subscriber cannot write blogs", models.RoleSubscriber, models.PermWriteBlogs, false, http.StatusForbidden},
		{"no session", "", models.PermViewDashboard, true, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner, called := okHandler()
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if !tt.noSess {
				req = req.WithContext(ctxWithSession(req.Context(), newTestSession(tt.role)))
			}
			rr := httptest.NewRecorder()
			RequireRole(tt.perm)(inner).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rr.Code, tt.wantCode)
			}
			if *called != (tt.wantCode == http.StatusOK) {
				t.Errorf("next called: %v", *called)
			}
		})
	}
}
