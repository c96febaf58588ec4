package store

import (
	"context"

	"blogdash/internal/api"
	"blogdash/internal/cache"
	"blogdash/internal/models"
)

// BlogFilter narrows the blog list.
type BlogFilter struct {
	api.ListParams
	Status     models.BlogStatus
	CategoryID string
	AuthorID   string
}

// BlogStore manages blog posts through the API.
type BlogStore struct {
	res resource[models.Blog, models.BlogInput]
}

// NewBlogStore returns a new BlogStore.
func NewBlogStore(client *api.Client, qc *cache.QueryCache) *BlogStore {
	return &BlogStore{res: resource[models.Blog, models.BlogInput]{
		client: client, cache: qc, path: "/blog", name: "blog",
	}}
}

// List returns one page of posts matching f.
func (s *BlogStore) List(ctx context.Context, f BlogFilter) (*api.Page[models.Blog], error) {
	q := f.Query()
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.CategoryID != "" {
		q.Set("categoryId", f.CategoryID)
	}
	if f.AuthorID != "" {
		q.Set("authorId", f.AuthorID)
	}
	return s.res.list(ctx, q)
}

// FindByID retrieves a post. Returns nil if not found.
func (s *BlogStore) FindByID(ctx context.Context, id string) (*models.Blog, error) {
	return s.res.get(ctx, id)
}

// Create publishes a new post (or saves it as a draft).
func (s *BlogStore) Create(ctx context.Context, in models.BlogInput) (*models.Blog, error) {
	return s.res.create(ctx, in)
}

// Update modifies an existing post.
func (s *BlogStore) Update(ctx context.Context, id string, in models.BlogInput) (*models.Blog, error) {
	return s.res.update(ctx, id, in)
}

// Delete removes a post.
func (s *BlogStore) Delete(ctx context.Context, id string) error {
	return s.res.remove(ctx, id)
}

// Count returns the number of posts visible to the caller.
func (s *BlogStore) Count(ctx context.Context) (int, error) {
	return s.res.count(ctx)
}
