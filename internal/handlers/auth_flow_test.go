// auth_flow_test.go contains handler tests for the Auth handler methods:
// LoginPage, LoginSubmit and Logout. The credentials are checked by the
// fake API; one test runs against a real Valkey session store and is
// skipped when Valkey is unavailable.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"blogdash/internal/api"
	"blogdash/internal/middleware"
	"blogdash/internal/models"
	"blogdash/internal/render"
	"blogdash/internal/session"
	"blogdash/internal/store"
)

// --------------------------------------------------------------------------
// LoginPage
// --------------------------------------------------------------------------

// TestLoginPage_ReturnsHTML verifies that a GET to the login page returns
// HTTP 200 with the sign-in form when no session is present.
func TestLoginPage_ReturnsHTML(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Auth.LoginPage(rec, newRequest(http.MethodGet, "/admin/login", nil, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	doc := parseBody(t, rec)
	if doc.Find(`form[action="/admin/login"] input[name="email"]`).Length() != 1 {
		t.Error("login form with an email field not rendered")
	}
}

// TestLoginPage_AuthenticatedRedirectsToDashboard verifies that a signed-in
// user is sent to the dashboard instead of the form.
func TestLoginPage_AuthenticatedRedirectsToDashboard(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signIn(t, models.RoleEditor)

	rec := httptest.NewRecorder()
	env.Auth.LoginPage(rec, newRequest(http.MethodGet, "/admin/login", nil, sess))

	assertRedirect(t, rec, "/admin")
}

// --------------------------------------------------------------------------
// LoginSubmit
// --------------------------------------------------------------------------

// TestLoginSubmit_ValidCredentials_CreatesSession verifies that accepted
// credentials create a session holding the API identity and tokens.
func TestLoginSubmit_ValidCredentials_CreatesSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.API.AddUser("Ada Editor", "ada@blogdash.test", testPassword, models.RoleEditor)

	form := url.Values{"email": {"ADA@blogdash.test "}, "password": {testPassword}}
	rec := httptest.NewRecorder()
	env.Auth.LoginSubmit(rec, newRequest(http.MethodPost, "/admin/login", form, nil))

	assertRedirect(t, rec, "/admin")
	if !hasFlash(rec, render.FlashSuccess, "Welcome back, Ada Editor") {
		t.Error("expected a welcome flash")
	}

	var id string
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			id = c.Value
		}
	}
	if id == "" {
		t.Fatal("session cookie not set")
	}
	data, ok := env.Sessions.Lookup(id)
	if !ok {
		t.Fatal("session not stored")
	}
	if data.UserID != user.ID || data.Role != models.RoleEditor || data.Name != "Ada Editor" {
		t.Errorf("session = %+v, want user %s as EDITOR", data, user.ID)
	}
	creds, _ := env.Sessions.LoadCredentials(context.Background(), id)
	if creds == nil || creds.Get(api.DefaultAccessCookie) == "" || creds.Get(api.DefaultRefreshCookie) == "" {
		t.Errorf("API tokens not kept with the session: %+v", creds)
	}
}

// TestLoginSubmit_InvalidCredentials_ShowsAPIMessage verifies that the
// API's rejection message is shown on the form.
func TestLoginSubmit_InvalidCredentials_ShowsAPIMessage(t *testing.T) {
	env := newTestEnv(t)
	env.API.AddUser("Ada", "ada@blogdash.test", testPassword, models.RoleEditor)

	form := url.Values{"email": {"ada@blogdash.test"}, "password": {"Wrong1234"}}
	rec := httptest.NewRecorder()
	env.Auth.LoginSubmit(rec, newRequest(http.MethodPost, "/admin/login", form, nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	doc := parseBody(t, rec)
	if got := strings.TrimSpace(doc.Find(".alert-error").Text()); got != "Invalid email or password" {
		t.Errorf("error: got %q", got)
	}
	if v, _ := doc.Find(`input[name="email"]`).Attr("value"); v != "ada@blogdash.test" {
		t.Errorf("email not kept: %q", v)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			t.Error("session cookie set for rejected login")
		}
	}
}

// TestLoginSubmit_APIOutage_BadGateway verifies that an API failure is not
// reported as wrong credentials.
func TestLoginSubmit_APIOutage_BadGateway(t *testing.T) {
	env := newTestEnv(t)
	env.API.AddUser("Ada", "ada@blogdash.test", testPassword, models.RoleEditor)
	env.API.FailNext(http.MethodPost, "/login", http.StatusServiceUnavailable, `{"message":"Database unavailable"}`)

	form := url.Values{"email": {"ada@blogdash.test"}, "password": {testPassword}}
	rec := httptest.NewRecorder()
	env.Auth.LoginSubmit(rec, newRequest(http.MethodPost, "/admin/login", form, nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if got := strings.TrimSpace(parseBody(t, rec).Find(".alert-error").Text()); got != "Database unavailable" {
		t.Errorf("error: got %q", got)
	}
}

func TestLoginFailureStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&api.APIError{Status: http.StatusUnauthorized}, http.StatusUnauthorized},
		{&api.APIError{Status: http.StatusUnprocessableEntity}, http.StatusUnauthorized},
		{&api.APIError{Status: http.StatusInternalServerError}, http.StatusBadGateway},
		{fmt.Errorf("login: %w", &api.APIError{Status: http.StatusForbidden}), http.StatusUnauthorized},
		{errors.New("dial tcp: connection refused"), http.StatusBadGateway},
		{store.ErrNoIdentity, http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := loginFailureStatus(tt.err); got != tt.want {
			t.Errorf("loginFailureStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// TestLoginSubmit_EmptyFields_ReRendersForm verifies that the form is
// validated before the API is called.
func TestLoginSubmit_EmptyFields_ReRendersForm(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Auth.LoginSubmit(rec, newRequest(http.MethodPost, "/admin/login", url.Values{"email": {"not-an-email"}}, nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	body := rec.Body.String()
	for _, want := range []string{"Enter a valid email address.", "Password is required."} {
		if !strings.Contains(body, want) {
			t.Errorf("body should contain %q", want)
		}
	}
	if env.API.Requests() != 0 {
		t.Errorf("API called %d times for an invalid form", env.API.Requests())
	}
}

// --------------------------------------------------------------------------
// Logout
// --------------------------------------------------------------------------

// TestLogout_DestroysSession verifies that logout revokes the API tokens,
// removes the session and returns to the login page with a notice.
func TestLogout_DestroysSession(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signIn(t, models.RoleAuthor)
	creds, _ := env.Sessions.LoadCredentials(context.Background(), sess.ID)

	rec := httptest.NewRecorder()
	env.Auth.Logout(rec, newRequest(http.MethodPost, "/admin/logout", url.Values{}, sess))

	assertRedirect(t, rec, middleware.LoginPath)
	if _, ok := env.Sessions.Lookup(sess.ID); ok {
		t.Error("session still stored after logout")
	}
	if !hasFlash(rec, render.FlashInfo, "signed out") {
		t.Error("expected a signed-out flash")
	}

	// The old tokens no longer work against the API.
	other := apiSession(env, creds)
	if _, err := store.NewAuthStore(env.API.Client(env.Sessions), nil).Me(other); err == nil {
		t.Error("API tokens still valid after logout")
	}
}

// TestLogout_WithoutSession verifies that logout without a session still
// lands on the login page.
func TestLogout_WithoutSession(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Auth.Logout(rec, newRequest(http.MethodPost, "/admin/logout", url.Values{}, nil))

	assertRedirect(t, rec, middleware.LoginPath)
}

// apiSession stores creds under a fresh session ID and returns a context
// carrying it.
func apiSession(env *testEnv, creds *api.Credentials) context.Context {
	ctx := context.Background()
	env.Sessions.SaveCredentials(ctx, "sess-test", creds)
	return api.WithSession(ctx, "sess-test")
}

// --------------------------------------------------------------------------
// Valkey-backed sessions
// --------------------------------------------------------------------------

// TestLoginSubmit_ValkeySessions verifies the login flow against the real
// session store: the cookie resolves to the session and its API tokens.
func TestLoginSubmit_ValkeySessions(t *testing.T) {
	vk := testValkeyClient(t)
	env := newTestEnv(t)
	env.API.AddUser("Val Key", "val@blogdash.test", testPassword, models.RoleAdministrator)

	sessions := session.NewStore(vk, false)
	remote := store.NewRemote(env.API.Client(sessions), nil)
	auth := NewAuth(env.Renderer, sessions, remote.Auth)

	form := url.Values{"email": {"val@blogdash.test"}, "password": {testPassword}}
	rec := httptest.NewRecorder()
	auth.LoginSubmit(rec, newRequest(http.MethodPost, "/admin/login", form, nil))
	assertRedirect(t, rec, "/admin")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	data, err := sessions.Get(context.Background(), req)
	if err != nil || data == nil {
		t.Fatalf("session lookup: %v, %v", data, err)
	}
	if data.Email != "val@blogdash.test" || data.Role != models.RoleAdministrator {
		t.Errorf("session = %+v", data)
	}

	// The stored tokens authenticate API calls for the session.
	ctx := middleware.WithSession(context.Background(), data)
	me, err := remote.Auth.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Name != "Val Key" {
		t.Errorf("Me = %+v", me)
	}
}
