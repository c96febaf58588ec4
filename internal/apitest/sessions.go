package apitest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"blogdash/internal/api"
	"blogdash/internal/session"
)

// Sessions is an in-memory stand-in for session.Store. It keeps session
// payloads next to a MemStore for the API credentials and uses the real
// session cookie name.
type Sessions struct {
	*MemStore

	mu   sync.Mutex
	seq  int
	data map[string]session.Data
}

// NewSessions returns an empty Sessions.
func NewSessions() *Sessions {
	return &Sessions{MemStore: NewMemStore(), data: make(map[string]session.Data)}
}

// Create stores data and creds under a new ID and sets the session cookie.
func (s *Sessions) Create(ctx context.Context, w http.ResponseWriter, data *session.Data, creds *api.Credentials) (string, error) {
	s.mu.Lock()
	s.seq++
	id := "sess-" + strconv.Itoa(s.seq)
	data.ID = id
	data.CreatedAt = time.Now()
	s.data[id] = *data
	s.mu.Unlock()

	if err := s.SaveCredentials(ctx, id, creds); err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: id, Path: "/", HttpOnly: true})
	return id, nil
}

// Get returns the session named by the request cookie, or nil.
func (s *Sessions) Get(_ context.Context, r *http.Request) (*session.Data, error) {
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[c.Value]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// Update overwrites an existing session payload.
func (s *Sessions) Update(_ context.Context, data *session.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[data.ID]; ok {
		s.data[data.ID] = *data
	}
	return nil
}

// Destroy removes the session named by the request cookie and clears it.
func (s *Sessions) Destroy(_ context.Context, w http.ResponseWriter, r *http.Request) error {
	if c, err := r.Cookie(session.CookieName); err == nil {
		s.mu.Lock()
		delete(s.data, c.Value)
		s.mu.Unlock()
		s.MemStore.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	return nil
}

// Lookup returns a stored session by ID.
func (s *Sessions) Lookup(id string) (session.Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[id]
	return d, ok
}

// SignIn issues API credentials for user on srv and stores a session for
// them, as a successful login would. It returns the session payload.
func (s *Sessions) SignIn(srv *Server, user *session.Data) *session.Data {
	creds := srv.Issue(user.UserID)
	s.Create(context.Background(), httptest.NewRecorder(), user, creds)
	return user
}
