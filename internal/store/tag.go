package store

import (
	"context"

	"blogdash/internal/api"
	"blogdash/internal/cache"
	"blogdash/internal/models"
)

// TagStore manages tags through the API.
type TagStore struct {
	res resource[models.Tag, models.TagInput]
}

// NewTagStore returns a new TagStore.
func NewTagStore(client *api.Client, qc *cache.QueryCache) *TagStore {
	return &TagStore{res: resource[models.Tag, models.TagInput]{
		client: client, cache: qc, path: "/tag", name: "tag", linked: []string{"/blog"},
	}}
}

func (s *TagStore) List(ctx context.Context, p api.ListParams) (*api.Page[models.Tag], error) {
	return s.res.list(ctx, p.Query())
}

// All returns every tag for the post form's checkboxes.
func (s *TagStore) All(ctx context.Context) ([]models.Tag, error) {
	page, err := s.res.list(ctx, api.ListParams{Page: 1, Limit: selectLimit}.Query())
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (s *TagStore) FindByID(ctx context.Context, id string) (*models.Tag, error) {
	return s.res.get(ctx, id)
}

func (s *TagStore) Create(ctx context.Context, in models.TagInput) (*models.Tag, error) {
	return s.res.create(ctx, in)
}

func (s *TagStore) Update(ctx context.Context, id string, in models.TagInput) (*models.Tag, error) {
	return s.res.update(ctx, id, in)
}

func (s *TagStore) Delete(ctx context.Context, id string) error {
	return s.res.remove(ctx, id)
}

func (s *TagStore) Count(ctx context.Context) (int, error) {
	return s.res.count(ctx)
}
