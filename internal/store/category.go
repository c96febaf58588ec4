// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"

	"blogdash/internal/api"
	"blogdash/internal/cache"
	"blogdash/internal/models"
)

// selectLimit is the page size used to fill <select> options.
const selectLimit = 100

// CategoryStore manages categories through the API.
type CategoryStore struct {
	res resource[models.Category, models.CategoryInput]
}

// NewCategoryStore returns a new CategoryStore. Posts embed their category,
// so category writes also drop cached posts.
func NewCategoryStore(client *api.Client, qc *cache.QueryCache) *CategoryStore {
	return &CategoryStore{res: resource[models.Category, models.CategoryInput]{
		client: client, cache: qc, path: "/category", name: "category", linked: []string{"/blog"},
	}}
}

// List returns one page of categories.
func (s *CategoryStore) List(ctx context.Context, p api.ListParams) (*api.Page[models.Category], error) {
	return s.res.list(ctx, p.Query())
}

// All returns every category for select inputs.
func (s *CategoryStore) All(ctx context.Context) ([]models.Category, error) {
	page, err := s.res.list(ctx, api.ListParams{Page: 1, Limit: selectLimit}.Query())
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id string) (*models.Category, error) {
	return s.res.get(ctx, id)
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	return s.res.create(ctx, in)
}

// Update modifies an existing category.
func (s *CategoryStore) Update(ctx context.Context, id string, in models.CategoryInput) (*models.Category, error) {
	return s.res.update(ctx, id, in)
}

// Delete removes a category by ID.
func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	return s.res.remove(ctx, id)
}

// Count returns the number of categories.
func (s *CategoryStore) Count(ctx context.Context) (int, error) {
	return s.res.count(ctx)
}
