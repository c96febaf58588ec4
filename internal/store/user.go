package store

import (
	"context"

	"blogdash/internal/api"
	"blogdash/internal/cache"
	"blogdash/internal/models"
)

// UserStore handles platform accounts through the API's admin endpoints.
type UserStore struct {
	res resource[models.User, models.UserInput]
}

// NewUserStore creates a new UserStore. Posts embed their author.
func NewUserStore(client *api.Client, qc *cache.QueryCache) *UserStore {
	return &UserStore{res: resource[models.User, models.UserInput]{
		client: client, cache: qc, path: "/user", name: "user", linked: []string{"/blog"},
	}}
}

// List returns one page of users.
func (s *UserStore) List(ctx context.Context, p api.ListParams) (*api.Page[models.User], error) {
	return s.res.list(ctx, p.Query())
}

// FindByID retrieves a user. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.res.get(ctx, id)
}

// Create registers a new account with the given role.
func (s *UserStore) Create(ctx context.Context, in models.UserInput) (*models.User, error) {
	return s.res.create(ctx, in)
}

// Update changes name, email, role and optionally the password. The
// account's own cached responses are dropped since its role may have
// changed.
func (s *UserStore) Update(ctx context.Context, id string, in models.UserInput) (*models.User, error) {
	u, err := s.res.update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.res.cache.InvalidateUser(ctx, id)
	return u, nil
}

// Delete removes an account along with its cached responses.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	if err := s.res.remove(ctx, id); err != nil {
		return err
	}
	s.res.cache.InvalidateUser(ctx, id)
	return nil
}

// Count returns the number of accounts.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	return s.res.count(ctx)
}
