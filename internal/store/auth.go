package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"blogdash/internal/api"
	"blogdash/internal/cache"
	"blogdash/internal/models"
)

// ErrNoIdentity is returned when a login succeeded but neither the response
// nor the access token identifies the user.
var ErrNoIdentity = errors.New("login response carried no user")

// AuthStore signs users in and out of the blog API and manages the
// signed-in account.
type AuthStore struct {
	client *api.Client
	cache  *cache.QueryCache
}

// NewAuthStore creates a new AuthStore. Signing out drops the user's
// cached responses from qc.
func NewAuthStore(client *api.Client, qc *cache.QueryCache) *AuthStore {
	return &AuthStore{client: client, cache: qc}
}

// Login exchanges email and password for API credentials. The user is
// read from the response body ({"user": {...}} or the bare user), falling
// back to the access token's claims.
func (s *AuthStore) Login(ctx context.Context, email, password string) (*models.User, *api.Credentials, error) {
	var raw json.RawMessage
	creds, err := s.client.Authenticate(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/login",
		Body:   map[string]string{"email": email, "password": password},
	}, &raw)
	if err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}

	user := userFromBody(raw)
	if user.ID == "" {
		if claims, err := api.ParseClaims(creds.Get(api.DefaultAccessCookie)); err == nil {
			user = models.User{ID: claims.Subject, Name: claims.Name, Email: claims.Email, Role: models.Role(claims.Role)}
		}
	}
	if user.ID == "" {
		return nil, nil, ErrNoIdentity
	}
	if role, ok := models.ParseRole(string(user.Role)); ok {
		user.Role = role
	}
	if user.Email == "" {
		user.Email = email
	}
	return &user, creds, nil
}

func userFromBody(raw []byte) models.User {
	var u models.User
	if len(raw) == 0 {
		return u
	}
	body := raw
	if nested := gjson.GetBytes(raw, "user"); nested.IsObject() {
		body = []byte(nested.Raw)
	}
	_ = json.Unmarshal(body, &u)
	return u
}

// Logout revokes the session's API tokens. The signed-in user's cached
// responses are dropped even when the API call fails.
func (s *AuthStore) Logout(ctx context.Context) error {
	defer s.cache.InvalidateUser(ctx, cache.UserFromContext(ctx))
	if err := s.client.Post(ctx, "/logout", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me returns the signed-in account as the API currently sees it.
func (s *AuthStore) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := s.client.Get(ctx, "/me", nil, &u); err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return &u, nil
}

// ChangePassword updates the signed-in account's password.
func (s *AuthStore) ChangePassword(ctx context.Context, in models.PasswordChange) error {
	if err := s.client.Put(ctx, "/me/password", in, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}
