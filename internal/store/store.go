// Package store provides access to the dashboard's data. Blog posts,
// categories, tags and users live in the external blog API; each remote
// store wraps the API client with typed methods and the query cache. The
// activity log is the one store backed by the dashboard's own database.
package store

import (
	"context"
	"fmt"
	"net/url"

	"blogdash/internal/api"
	"blogdash/internal/cache"
)

// resource implements the CRUD verbs shared by every API collection.
// T is the record type, In the create/update payload.
type resource[T, In any] struct {
	client *api.Client
	cache  *cache.QueryCache
	path   string   // collection path, e.g. "/blog"
	name   string   // singular noun for error messages
	linked []string // other collections embedding this one
}

// list fetches one page of the collection. Results are cached per user.
func (r *resource[T, In]) list(ctx context.Context, q url.Values) (*api.Page[T], error) {
	key := r.path
	if len(q) > 0 {
		key += "?" + q.Encode()
	}

	var page api.Page[T]
	user := cache.UserFromContext(ctx)
	if r.cache.Get(ctx, user, key, &page) {
		return &page, nil
	}

	if err := r.client.Get(ctx, r.path, q, &page); err != nil {
		return nil, fmt.Errorf("list %ss: %w", r.name, err)
	}
	r.cache.Set(ctx, user, key, &page)
	return &page, nil
}

// get fetches one record. Returns nil if the API reports it missing.
func (r *resource[T, In]) get(ctx context.Context, id string) (*T, error) {
	path := r.itemPath(id)

	var item T
	user := cache.UserFromContext(ctx)
	if r.cache.Get(ctx, user, path, &item) {
		return &item, nil
	}

	if err := r.client.Get(ctx, path, nil, &item); err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s: %w", r.name, err)
	}
	r.cache.Set(ctx, user, path, &item)
	return &item, nil
}

// create posts in and returns the record the API created.
func (r *resource[T, In]) create(ctx context.Context, in In) (*T, error) {
	var item T
	if err := r.client.Post(ctx, r.path, in, &item); err != nil {
		return nil, fmt.Errorf("create %s: %w", r.name, err)
	}
	r.invalidate(ctx)
	return &item, nil
}

// update replaces the record's editable fields and returns the result.
func (r *resource[T, In]) update(ctx context.Context, id string, in In) (*T, error) {
	var item T
	if err := r.client.Put(ctx, r.itemPath(id), in, &item); err != nil {
		return nil, fmt.Errorf("update %s: %w", r.name, err)
	}
	r.invalidate(ctx)
	return &item, nil
}

// remove deletes the record.
func (r *resource[T, In]) remove(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, r.itemPath(id)); err != nil {
		return fmt.Errorf("delete %s: %w", r.name, err)
	}
	r.invalidate(ctx)
	return nil
}

// count returns the collection's total as reported by a one-item page.
func (r *resource[T, In]) count(ctx context.Context) (int, error) {
	page, err := r.list(ctx, api.ListParams{Page: 1, Limit: 1}.Query())
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

func (r *resource[T, In]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r *resource[T, In]) invalidate(ctx context.Context) {
	r.cache.Invalidate(ctx, r.path)
	for _, p := range r.linked {
		r.cache.Invalidate(ctx, p)
	}
}

// Remote bundles the API-backed stores.
type Remote struct {
	Blogs      *BlogStore
	Categories *CategoryStore
	Tags       *TagStore
	Users      *UserStore
	Auth       *AuthStore
}

// NewRemote creates every API-backed store over one client and cache.
func NewRemote(client *api.Client, qc *cache.QueryCache) *Remote {
	return &Remote{
		Blogs:      NewBlogStore(client, qc),
		Categories: NewCategoryStore(client, qc),
		Tags:       NewTagStore(client, qc),
		Users:      NewUserStore(client, qc),
		Auth:       NewAuthStore(client, qc),
	}
}
