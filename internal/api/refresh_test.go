// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// tokenAPI is a fake blog API that accepts only the current access token
// and hands out a new one on refresh.
type tokenAPI struct {
	mu        sync.Mutex
	current   string
	next      string
	refreshes atomic.Int32
	rejected  atomic.Int32
	delay     time.Duration
	failRenew bool
	bodies    []string
}

func (a *tokenAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == DefaultRefreshPath {
		a.refreshes.Add(1)
		time.Sleep(a.delay)
		if a.failRenew || cookieValue(r, "refreshToken") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"refresh token expired"}`))
			return
		}
		a.mu.Lock()
		a.current = a.next
		a.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: a.next})
		w.WriteHeader(http.StatusNoContent)
		return
	}

	a.mu.Lock()
	current := a.current
	a.mu.Unlock()
	if cookieValue(r, "accessToken") != current {
		a.rejected.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"jwt expired"}`))
		return
	}

	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		if len(b) > 0 {
			a.mu.Lock()
			a.bodies = append(a.bodies, string(b))
			a.mu.Unlock()
		}
	}
	w.Write([]byte(`{"ok":true}`))
}

func TestDo_RefreshesOn401AndReplaysRequest(t *testing.T) {
	fake := &tokenAPI{current: "fresh-1", next: "fresh-1"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := newMemStore()
	store.put("s1", map[string]string{"accessToken": "stale", "refreshToken": "r"})
	c := newTestClient(srv, store)

	ctx := WithSession(context.Background(), "s1")
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.Post(ctx, "/blog", map[string]string{"title": "Replayed"}, &out); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !out.OK {
		t.Error("expected replayed request to succeed")
	}
	if got := fake.refreshes.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := store.get("s1").Get("accessToken"); got != "fresh-1" {
		t.Errorf("stored access token = %q, want fresh-1", got)
	}
	if len(fake.bodies) != 1 || fake.bodies[0] != `{"title":"Replayed"}` {
		t.Errorf("replayed bodies = %v", fake.bodies)
	}
}

// TestDo_ConcurrentRequestsShareOneRefresh verifies the refresh queue:
// requests that fail while a refresh is in flight wait for it and replay,
// and the API sees exactly one refresh call.
func TestDo_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	fake := &tokenAPI{current: "new", next: "new", delay: 100 * time.Millisecond}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := newMemStore()
	store.put("s1", map[string]string{"accessToken": "old", "refreshToken": "r"})
	c := newTestClient(srv, store)
	ctx := WithSession(context.Background(), "s1")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- c.Get(ctx, "/blog", nil, &struct{}{})
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("request failed: %v", err)
		}
	}
	if got := fake.refreshes.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", got)
	}
}

// TestDo_LateRejectionReusesStoredToken covers a request rejected with a
// token that a finished refresh has already replaced.
func TestDo_LateRejectionReusesStoredToken(t *testing.T) {
	fake := &tokenAPI{current: "new", next: "new"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := newMemStore()
	store.put("s1", map[string]string{"accessToken": "new", "refreshToken": "r"})
	c := newTestClient(srv, store)

	stale := &Credentials{Cookies: map[string]string{"accessToken": "old", "refreshToken": "r"}}
	got, err := c.refresh(context.Background(), "s1", stale)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.Get("accessToken") != "new" {
		t.Errorf("access token = %q, want new", got.Get("accessToken"))
	}
	if fake.refreshes.Load() != 0 {
		t.Errorf("refresh endpoint called %d times, want 0", fake.refreshes.Load())
	}
}

func TestDo_RefreshFailureReturnsSessionExpired(t *testing.T) {
	fake := &tokenAPI{current: "other", next: "other", failRenew: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := newMemStore()
	store.put("s1", map[string]string{"accessToken": "stale", "refreshToken": "r"})
	c := newTestClient(srv, store)

	err := c.Get(WithSession(context.Background(), "s1"), "/blog", nil, &struct{}{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if UserMessage(err) != "Your session has expired. Please sign in again." {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
}

func TestDo_MissingRefreshTokenReturnsSessionExpired(t *testing.T) {
	fake := &tokenAPI{current: "other", next: "other"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := newMemStore()
	store.put("s1", map[string]string{"accessToken": "stale"})

	err := newTestClient(srv, store).Get(WithSession(context.Background(), "s1"), "/blog", nil, &struct{}{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if fake.refreshes.Load() != 0 {
		t.Errorf("refresh endpoint should not be called without a refresh token")
	}
}

// TestDo_ReplayRejectedAgain ensures a request is replayed at most once.
func TestDo_ReplayRejectedAgain(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "renewed"})
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newMemStore()
	store.put("s1", map[string]string{"accessToken": "stale", "refreshToken": "r"})

	err := newTestClient(srv, store).Get(WithSession(context.Background(), "s1"), "/user", nil, &struct{}{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("request sent %d times, want 2 (original + one replay)", calls.Load())
	}
}

// TestDo_ExpiredJWTRefreshesBeforeSending checks the proactive path: an
// access token whose exp has passed is renewed without a wasted 401.
func TestDo_ExpiredJWTRefreshesBeforeSending(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expired := signedToken(t, "u1", now.Add(-time.Minute))
	valid := signedToken(t, "u1", now.Add(time.Hour))

	fake := &tokenAPI{current: valid, next: valid}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := newMemStore()
	store.put("s1", map[string]string{"accessToken": expired, "refreshToken": "r"})
	c := New(Options{BaseURL: srv.URL, Store: store, Now: func() time.Time { return now }})

	if err := c.Get(WithSession(context.Background(), "s1"), "/blog", nil, &struct{}{}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fake.rejected.Load() != 0 {
		t.Errorf("API rejected %d requests, want 0", fake.rejected.Load())
	}
	if fake.refreshes.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", fake.refreshes.Load())
	}
}

// TestRefresh_WaiterCancellationDoesNotFailOthers verifies that the shared
// refresh keeps running when the caller that started it gives up.
func TestRefresh_WaiterCancellationDoesNotFailOthers(t *testing.T) {
	fake := &tokenAPI{current: "new", next: "new", delay: 150 * time.Millisecond}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := newMemStore()
	store.put("s1", map[string]string{"accessToken": "old", "refreshToken": "r"})
	c := newTestClient(srv, store)
	stale := &Credentials{Cookies: map[string]string{"accessToken": "old", "refreshToken": "r"}}

	cancelled, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.refresh(cancelled, "s1", stale)
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	got, err := c.refresh(context.Background(), "s1", stale)
	if err != nil {
		t.Fatalf("second waiter failed: %v", err)
	}
	if got.Get("accessToken") != "new" {
		t.Errorf("access token = %q, want new", got.Get("accessToken"))
	}
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled waiter err = %v, want context.Canceled", err)
	}
	if fake.refreshes.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", fake.refreshes.Load())
	}
}
