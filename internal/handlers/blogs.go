package handlers

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"blogdash/internal/api"
	"blogdash/internal/forms"
	"blogdash/internal/imaging"
	"blogdash/internal/menu"
	"blogdash/internal/middleware"
	"blogdash/internal/models"
	"blogdash/internal/render"
	"blogdash/internal/richtext"
	"blogdash/internal/store"
)

// maxThumbnailBytes caps thumbnail uploads and the multipart form holding
// them.
const maxThumbnailBytes = 10 << 20

const renderErrorMessage = "This post's content could not be displayed."

// BlogsList handles GET /admin/blogs.
func (a *Admin) BlogsList(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	status := r.URL.Query().Get("status")
	if !models.BlogStatus(status).Valid() {
		status = ""
	}

	page, err := a.blogs.List(r.Context(), store.BlogFilter{
		ListParams: params,
		Status:     models.BlogStatus(status),
	})
	msg, ok := a.listError(w, r, err)
	if !ok {
		return
	}

	var blogs []models.Blog
	pager := render.NewPager(menu.PathOf(menu.Blogs), params.Search, params.Page, 1, 0)
	if page != nil {
		blogs = page.Items
		pager = render.NewPager(pager.Base, params.Search, page.Page, page.TotalPages(), page.Total)
	}

	a.renderer.Page(w, r, "blogs_list", &render.PageData{
		Title:   "Blogs",
		Section: menu.Blogs,
		Data: map[string]any{
			"Blogs":  blogs,
			"Search": params.Search,
			"Status": status,
			"Pager":  pager.WithFilter("status", status),
			"Error":  msg,
		},
	})
}

// BlogView handles GET /admin/blogs/{id}: the post with its content
// rendered to HTML.
func (a *Admin) BlogView(w http.ResponseWriter, r *http.Request) {
	blog, err := a.blogs.FindByID(r.Context(), chi.URLParam(r, "id"))
	if a.failLoad(w, r, err, "blog", blog != nil) {
		return
	}

	var body template.HTML
	var renderErr string
	html, err := richtext.RenderJSON(blog.Content)
	if err != nil {
		slog.Warn("render blog content", "blog_id", blog.ID, "error", err)
		renderErr = renderErrorMessage
	} else {
		// RenderJSON output is sanitized by its policy.
		body = template.HTML(html)
	}

	a.renderer.Page(w, r, "blog_view", &render.PageData{
		Title:   blog.Title,
		Section: menu.Blogs,
		Data: map[string]any{
			"Blog":        blog,
			"HTML":        body,
			"RenderError": renderErr,
		},
	})
}

// BlogNew handles GET /admin/blogs/new.
func (a *Admin) BlogNew(w http.ResponseWriter, r *http.Request) {
	form := &forms.Blog{Status: string(models.BlogStatusDraft)}
	a.renderBlogForm(w, r, http.StatusOK, form, nil, "", "")
}

// BlogCreate handles POST /admin/blogs.
func (a *Admin) BlogCreate(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.BlogFromValues(r.PostForm)

	sess := middleware.SessionFromCtx(r.Context())
	if !sess.Role.Can(models.PermPublishBlogs) {
		form.Status = string(models.BlogStatusDraft)
	}

	uploaded, uploadErr := a.uploadThumbnail(r)
	if uploaded != "" {
		form.Thumbnail = uploaded
	}
	errs := form.Validate()
	if uploadErr != "" {
		errs.Add("thumbnail", uploadErr)
	}
	if !errs.Valid() {
		a.discardThumbnail(r.Context(), uploaded)
		a.renderBlogForm(w, r, http.StatusUnprocessableEntity, form, errs, "", "")
		return
	}

	blog, err := a.blogs.Create(r.Context(), form.Input())
	if err != nil {
		a.discardThumbnail(r.Context(), uploaded)
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		slog.Warn("create blog failed", "error", err)
		a.renderBlogForm(w, r, http.StatusUnprocessableEntity, form, errs, "", api.UserMessage(err))
		return
	}

	a.record(r, "blog", blog.ID, blog.Title, store.ActionCreate)
	render.AddFlash(w, r, render.FlashSuccess, "Blog created.")
	middleware.Redirect(w, r, "/admin/blogs/"+blog.ID)
}

// BlogEdit handles GET /admin/blogs/{id}/edit.
func (a *Admin) BlogEdit(w http.ResponseWriter, r *http.Request) {
	blog, err := a.blogs.FindByID(r.Context(), chi.URLParam(r, "id"))
	if a.failLoad(w, r, err, "blog", blog != nil) {
		return
	}
	a.renderBlogForm(w, r, http.StatusOK, forms.BlogFromModel(blog), nil, blog.ID, "")
}

// BlogUpdate handles PUT /admin/blogs/{id} and its POST fallback.
func (a *Admin) BlogUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := a.blogs.FindByID(r.Context(), id)
	if a.failLoad(w, r, err, "blog", current != nil) {
		return
	}

	if err := parseForm(r); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.BlogFromValues(r.PostForm)

	// Without publish rights the stored status is kept, in either direction.
	sess := middleware.SessionFromCtx(r.Context())
	if !sess.Role.Can(models.PermPublishBlogs) {
		form.Status = string(current.Status)
	}
	// An empty editor with no Markdown keeps the stored document.
	if form.Content == "" && strings.TrimSpace(form.ContentMarkdown) == "" {
		form.Content = string(current.Content)
	}

	uploaded, uploadErr := a.uploadThumbnail(r)
	if uploaded != "" {
		form.Thumbnail = uploaded
	}
	errs := form.Validate()
	if uploadErr != "" {
		errs.Add("thumbnail", uploadErr)
	}
	if !errs.Valid() {
		a.discardThumbnail(r.Context(), uploaded)
		a.renderBlogForm(w, r, http.StatusUnprocessableEntity, form, errs, id, "")
		return
	}

	blog, err := a.blogs.Update(r.Context(), id, form.Input())
	if err != nil {
		a.discardThumbnail(r.Context(), uploaded)
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		slog.Warn("update blog failed", "blog_id", id, "error", err)
		a.renderBlogForm(w, r, http.StatusUnprocessableEntity, form, errs, id, api.UserMessage(err))
		return
	}

	if current.Thumbnail != "" && current.Thumbnail != blog.Thumbnail {
		a.discardThumbnail(r.Context(), current.Thumbnail)
	}
	a.record(r, "blog", blog.ID, blog.Title, store.ActionUpdate)
	render.AddFlash(w, r, render.FlashSuccess, "Blog updated.")
	middleware.Redirect(w, r, "/admin/blogs/"+blog.ID)
}

// BlogDelete handles DELETE /admin/blogs/{id} and its POST fallback.
func (a *Admin) BlogDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	blog, err := a.blogs.FindByID(r.Context(), id)
	if err != nil && errors.Is(err, api.ErrSessionExpired) {
		a.expire(w, r)
		return
	}

	if err := a.blogs.Delete(r.Context(), id); err != nil {
		a.failAction(w, r, err, "/admin/blogs")
		return
	}

	title := id
	if blog != nil {
		title = blog.Title
		a.discardThumbnail(r.Context(), blog.Thumbnail)
	}
	a.record(r, "blog", id, title, store.ActionDelete)
	render.AddFlash(w, r, render.FlashSuccess, "Blog deleted.")
	middleware.Redirect(w, r, "/admin/blogs")
}

// renderBlogForm renders the create/edit form with the category and tag
// choices. id is empty for a new post.
func (a *Admin) renderBlogForm(w http.ResponseWriter, r *http.Request, status int, form *forms.Blog, errs forms.Errors, id, errMsg string) {
	categories, catErr := a.categories.All(r.Context())
	tags, tagErr := a.tags.All(r.Context())
	for _, err := range []error{catErr, tagErr} {
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		if err != nil && errMsg == "" {
			slog.Warn("load blog form choices", "error", err)
			errMsg = api.UserMessage(err)
		}
	}

	var contentHTML template.HTML
	if form.Content != "" {
		if html, err := richtext.RenderJSON([]byte(form.Content)); err == nil {
			contentHTML = template.HTML(html)
		}
	}

	title := "New blog"
	if id != "" {
		title = "Edit blog"
	}
	a.renderer.PageStatus(w, r, status, "blog_form", &render.PageData{
		Title:   title,
		Section: menu.Blogs,
		Data: map[string]any{
			"Form":          form,
			"Errors":        errs,
			"IsNew":         id == "",
			"ID":            id,
			"Categories":    categories,
			"Tags":          tags,
			"ContentHTML":   contentHTML,
			"Error":         errMsg,
			"UploadEnabled": a.thumbnails != nil,
		},
	})
}

// uploadThumbnail processes the optional thumbnail_file upload and returns
// its public URL. A non-empty message describes a rejected upload.
func (a *Admin) uploadThumbnail(r *http.Request) (string, string) {
	if a.thumbnails == nil || r.MultipartForm == nil {
		return "", ""
	}
	file, header, err := r.FormFile("thumbnail_file")
	if errors.Is(err, http.ErrMissingFile) {
		return "", ""
	}
	if err != nil {
		return "", "The uploaded file could not be read."
	}
	defer file.Close()
	if header.Size == 0 {
		return "", ""
	}

	data, err := imaging.ReadLimited(file, maxThumbnailBytes)
	if err != nil {
		return "", "Thumbnail must be at most 10 MB."
	}
	img, err := imaging.Thumbnail(data, imaging.MaxWidth)
	if errors.Is(err, imaging.ErrUnsupported) {
		return "", "Thumbnail must be a JPEG, PNG, GIF or WebP image."
	}
	if err != nil {
		slog.Warn("thumbnail processing failed", "filename", header.Filename, "error", err)
		return "", "The image could not be processed."
	}

	url, err := a.thumbnails.PutThumbnail(r.Context(), img.Data)
	if err != nil {
		slog.Error("thumbnail upload failed", "error", err)
		return "", "The thumbnail could not be uploaded."
	}
	slog.Info("thumbnail uploaded", "url", url, "width", img.Width, "height", img.Height)
	return url, ""
}

// discardThumbnail removes an uploaded thumbnail. Foreign URLs are left
// alone by the storage client.
func (a *Admin) discardThumbnail(ctx context.Context, url string) {
	if a.thumbnails == nil || url == "" {
		return
	}
	if err := a.thumbnails.DeleteURL(ctx, url); err != nil {
		slog.Warn("thumbnail delete failed", "url", url, "error", err)
	}
}
