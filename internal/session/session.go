// Package session keeps dashboard sign-ins in Valkey. The browser only
// holds an opaque ID cookie; the user snapshot and the API credentials held
// on the user's behalf live in one Valkey hash that expires with the
// session.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"blogdash/internal/api"
	"blogdash/internal/models"
)

const (
	// CookieName is the session cookie.
	CookieName = "bd_session"

	// DefaultTTL bounds a session's life from sign-in. Reads never extend it;
	// only Update restarts the server-side expiry.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "session:"

	// Hash fields. Profile edits and token refreshes each write only their
	// own field, so neither can clobber the other.
	fieldData  = "data"
	fieldCreds = "creds"

	idBytes = 32
)

// ErrExpired is returned when credentials are saved for a session Valkey no
// longer holds.
var ErrExpired = errors.New("session: expired")

// saveIfAlive writes one field only while the session hash still exists, so
// a late token refresh cannot resurrect a session without a TTL.
var saveIfAlive = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// Data is the signed-in user as the API last reported it.
type Data struct {
	ID        string      `json:"-"`
	UserID    string      `json:"user_id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// User returns the session identity as a models.User.
func (d *Data) User() models.User {
	return models.User{ID: d.UserID, Name: d.Name, Email: d.Email, Role: d.Role}
}

// Store manages sessions in Valkey. It also serves as the API client's
// api.CredentialStore.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore returns a store on client. secure marks the cookie Secure.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{client: client, ttl: DefaultTTL, secure: secure}
}

func key(id string) string { return keyPrefix + id }

// validID rejects cookie values that cannot be a session we issued, so
// garbage never reaches Valkey.
func validID(id string) bool {
	if len(id) != 2*idBytes {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// Create starts a session for data with the credentials from sign-in, sets
// the cookie and returns the new ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data, creds *api.Credentials) (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	id := hex.EncodeToString(b)
	data.ID = id
	data.CreatedAt = time.Now().UTC()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session encode: %w", err)
	}
	credPayload, err := json.Marshal(creds.Clone())
	if err != nil {
		return "", fmt.Errorf("session encode credentials: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key(id), fieldData, payload, fieldCreds, credPayload)
		pipe.Expire(ctx, key(id), s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	http.SetCookie(w, s.cookie(id, int(s.ttl.Seconds())))
	return id, nil
}

// Get returns the session named by the request cookie, or nil when there is
// none. A missing session is not an error.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || !validID(c.Value) {
		return nil, nil
	}

	payload, err := s.client.HGet(ctx, key(c.Value), fieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	data.ID = c.Value
	return &data, nil
}

// Update rewrites the user snapshot and restarts the TTL. Credentials are
// left alone.
func (s *Store) Update(ctx context.Context, data *Data) error {
	if data.ID == "" {
		return errors.New("session update: missing id")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key(data.ID), fieldData, payload)
		pipe.Expire(ctx, key(data.ID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

// Destroy deletes the request's session and expires the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	if validID(c.Value) {
		if err := s.client.Del(ctx, key(c.Value)).Err(); err != nil {
			return fmt.Errorf("session destroy: %w", err)
		}
	}
	http.SetCookie(w, s.cookie("", -1))
	return nil
}

// LoadCredentials implements api.CredentialStore.
func (s *Store) LoadCredentials(ctx context.Context, sessionID string) (*api.Credentials, error) {
	payload, err := s.client.HGet(ctx, key(sessionID), fieldCreds).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session load credentials: %w", err)
	}

	var creds api.Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return nil, fmt.Errorf("session decode credentials: %w", err)
	}
	return &creds, nil
}

// SaveCredentials implements api.CredentialStore. The session keeps its
// remaining lifetime; ErrExpired reports that it is already gone.
func (s *Store) SaveCredentials(ctx context.Context, sessionID string, creds *api.Credentials) error {
	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("session encode credentials: %w", err)
	}
	saved, err := saveIfAlive.Run(ctx, s.client, []string{key(sessionID)}, fieldCreds, payload).Int()
	if err != nil {
		return fmt.Errorf("session save credentials: %w", err)
	}
	if saved == 0 {
		return ErrExpired
	}
	return nil
}
