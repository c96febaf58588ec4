// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the blogdash admin
// dashboard. Handlers are grouped by concern (auth, dashboard, blogs,
// taxonomy, users, profile) and receive their dependencies through the
// handler struct.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"blogdash/internal/api"
	"blogdash/internal/menu"
	"blogdash/internal/middleware"
	"blogdash/internal/models"
	"blogdash/internal/render"
	"blogdash/internal/session"
	"blogdash/internal/store"
)

const (
	// perPage is the page size of every list screen.
	perPage = 10

	// recentActivity is how many activity entries the dashboard shows.
	recentActivity = 10

	expiredMessage = "Your session has expired. Please sign in again."
)

// Sessions creates, updates and destroys dashboard sessions.
// *session.Store implements it.
type Sessions interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data, creds *api.Credentials) (string, error)
	Update(ctx context.Context, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// ActivityLog records and lists dashboard changes.
// *store.ActivityStore implements it.
type ActivityLog interface {
	Record(ctx context.Context, a store.Activity)
	Recent(ctx context.Context, limit int) ([]store.Activity, error)
}

// Thumbnails stores uploaded blog thumbnails.
// *storage.Client implements it.
type Thumbnails interface {
	PutThumbnail(ctx context.Context, data []byte) (string, error)
	DeleteURL(ctx context.Context, rawURL string) error
}

// Admin groups all admin panel HTTP handlers and their dependencies.
type Admin struct {
	renderer   *render.Renderer
	sessions   Sessions
	blogs      *store.BlogStore
	categories *store.CategoryStore
	tags       *store.TagStore
	users      *store.UserStore
	auth       *store.AuthStore
	activity   ActivityLog
	thumbnails Thumbnails
}

// NewAdmin creates a new Admin handler group with the given dependencies.
// activity and thumbnails may be nil when the activity database or object
// storage is not configured.
func NewAdmin(renderer *render.Renderer, sessions Sessions, remote *store.Remote, activity ActivityLog, thumbnails Thumbnails) *Admin {
	return &Admin{
		renderer:   renderer,
		sessions:   sessions,
		blogs:      remote.Blogs,
		categories: remote.Categories,
		tags:       remote.Tags,
		users:      remote.Users,
		auth:       remote.Auth,
		activity:   activity,
		thumbnails: thumbnails,
	}
}

// stat is one dashboard counter. Failed marks a count the API could not
// deliver.
type stat struct {
	Label  string
	Path   string
	Count  int
	Failed bool
}

// Dashboard renders the admin dashboard: a counter for every collection the
// role can manage and the recent activity.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	counters := []struct {
		perm    models.Permission
		section string
		label   string
		count   func(context.Context) (int, error)
	}{
		{models.PermWriteBlogs, menu.Blogs, "Blogs", a.blogs.Count},
		{models.PermManageCategories, menu.Categories, "Categories", a.categories.Count},
		{models.PermManageTags, menu.Tags, "Tags", a.tags.Count},
		{models.PermManageUsers, menu.Users, "Users", a.users.Count},
	}

	var stats []stat
	var fetch []func(context.Context) (int, error)
	for _, c := range counters {
		if !sess.Role.Can(c.perm) {
			continue
		}
		stats = append(stats, stat{Label: c.label, Path: menu.PathOf(c.section)})
		fetch = append(fetch, c.count)
	}

	g, ctx := errgroup.WithContext(r.Context())
	for i := range stats {
		g.Go(func() error {
			n, err := fetch[i](ctx)
			if errors.Is(err, api.ErrSessionExpired) {
				return err
			}
			if err != nil {
				slog.Warn("dashboard count failed", "collection", stats[i].Label, "error", err)
				stats[i].Failed = true
				return nil
			}
			stats[i].Count = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.expire(w, r)
		return
	}

	var activity []store.Activity
	if a.activity != nil && sess.Role.Can(models.PermWriteBlogs) {
		// Over-fetch: entries the role may not see are dropped below.
		entries, err := a.activity.Recent(r.Context(), recentActivity*4)
		if err != nil {
			slog.Warn("load recent activity failed", "error", err)
		}
		activity = visibleActivity(sess.Role, entries, recentActivity)
	}

	a.renderer.Page(w, r, "dashboard", &render.PageData{
		Title:   "Dashboard",
		Section: menu.Dashboard,
		Data: map[string]any{
			"Stats":    stats,
			"Activity": activity,
		},
	})
}

// activityPermission is the permission needed to see entries of each
// entity type on the dashboard.
var activityPermission = map[string]models.Permission{
	"blog":     models.PermWriteBlogs,
	"category": models.PermManageCategories,
	"tag":      models.PermManageTags,
	"user":     models.PermManageUsers,
}

// visibleActivity keeps at most limit entries whose entity type role may
// manage. Unknown types are hidden.
func visibleActivity(role models.Role, entries []store.Activity, limit int) []store.Activity {
	var out []store.Activity
	for _, e := range entries {
		perm, ok := activityPermission[e.EntityType]
		if !ok || !role.Can(perm) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

// --- shared helpers ---

// expire ends a session the API no longer accepts and sends the user to
// the login page.
func (a *Admin) expire(w http.ResponseWriter, r *http.Request) {
	expireSession(a.sessions, w, r)
}

func expireSession(sessions Sessions, w http.ResponseWriter, r *http.Request) {
	if err := sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	render.AddFlash(w, r, render.FlashWarning, expiredMessage)
	middleware.Redirect(w, r, middleware.LoginPath)
}

// failAction reports a failed create/update/delete that has no form to
// re-render: an error notification on the page at back.
func (a *Admin) failAction(w http.ResponseWriter, r *http.Request, err error, back string) {
	if errors.Is(err, api.ErrSessionExpired) {
		a.expire(w, r)
		return
	}
	slog.Warn("api action failed", "method", r.Method, "path", r.URL.Path, "error", err)
	render.AddFlash(w, r, render.FlashError, api.UserMessage(err))
	middleware.Redirect(w, r, back)
}

// failLoad renders the error page for a record that could not be loaded.
// Reports whether the response was written.
func (a *Admin) failLoad(w http.ResponseWriter, r *http.Request, err error, what string, found bool) bool {
	switch {
	case errors.Is(err, api.ErrSessionExpired):
		a.expire(w, r)
	case err != nil:
		slog.Error("load failed", "what", what, "path", r.URL.Path, "error", err)
		a.errorPage(w, r, http.StatusBadGateway, api.UserMessage(err))
	case !found:
		a.errorPage(w, r, http.StatusNotFound, "That "+what+" does not exist.")
	default:
		return false
	}
	return true
}

func (a *Admin) errorPage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	a.renderer.PageStatus(w, r, status, "error", &render.PageData{
		Title: http.StatusText(status),
		Data:  map[string]any{"Status": status, "Message": msg},
	})
}

// listError turns a list failure into the inline message shown above the
// table. Reports false when the session expired and the response is done.
func (a *Admin) listError(w http.ResponseWriter, r *http.Request, err error) (string, bool) {
	if err == nil {
		return "", true
	}
	if errors.Is(err, api.ErrSessionExpired) {
		a.expire(w, r)
		return "", false
	}
	slog.Warn("list failed", "path", r.URL.Path, "error", err)
	return api.UserMessage(err), true
}

// record logs a change to the activity log when one is configured.
func (a *Admin) record(r *http.Request, entityType, entityID, title, action string) {
	if a.activity == nil {
		return
	}
	sess := middleware.SessionFromCtx(r.Context())
	entry := store.Activity{
		EntityType:  entityType,
		EntityID:    entityID,
		EntityTitle: title,
		Action:      action,
	}
	if sess != nil {
		entry.ActorID = sess.UserID
		entry.ActorName = sess.Name
	}
	a.activity.Record(r.Context(), entry)
}

// listParams reads ?page= and ?search= for a list screen.
func listParams(r *http.Request) api.ListParams {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	return api.ListParams{
		Page:   page,
		Limit:  perPage,
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}
}

// parseForm parses a urlencoded or multipart body.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxThumbnailBytes)
	}
	return r.ParseForm()
}
