package apitest

import (
	"context"
	"sync"

	"blogdash/internal/api"
)

// MemStore is an in-memory api.CredentialStore.
type MemStore struct {
	mu    sync.Mutex
	creds map[string]*api.Credentials
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{creds: make(map[string]*api.Credentials)}
}

// LoadCredentials implements api.CredentialStore.
func (m *MemStore) LoadCredentials(_ context.Context, sessionID string) (*api.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[sessionID]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

// SaveCredentials implements api.CredentialStore.
func (m *MemStore) SaveCredentials(_ context.Context, sessionID string, creds *api.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[sessionID] = creds.Clone()
	return nil
}

// Delete forgets a session's credentials.
func (m *MemStore) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, sessionID)
}
