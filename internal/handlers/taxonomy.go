package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogdash/internal/api"
	"blogdash/internal/forms"
	"blogdash/internal/menu"
	"blogdash/internal/middleware"
	"blogdash/internal/models"
	"blogdash/internal/render"
	"blogdash/internal/store"
)

// --- Categories ---

// CategoriesList handles GET /admin/categories.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	page, err := a.categories.List(r.Context(), params)
	msg, ok := a.listError(w, r, err)
	if !ok {
		return
	}

	var items []models.Category
	pager := render.NewPager(menu.PathOf(menu.Categories), params.Search, params.Page, 1, 0)
	if page != nil {
		items = page.Items
		pager = render.NewPager(pager.Base, params.Search, page.Page, page.TotalPages(), page.Total)
	}

	a.renderer.Page(w, r, "categories_list", &render.PageData{
		Title:   "Categories",
		Section: menu.Categories,
		Data: map[string]any{
			"Categories": items,
			"Search":     params.Search,
			"Pager":      pager,
			"Error":      msg,
		},
	})
}

// CategoryNew handles GET /admin/categories/new.
func (a *Admin) CategoryNew(w http.ResponseWriter, r *http.Request) {
	a.renderCategoryForm(w, r, http.StatusOK, &forms.Category{}, nil, "", "")
}

// CategoryCreate handles POST /admin/categories.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.CategoryFromValues(r.PostForm)
	if errs := form.Validate(); !errs.Valid() {
		a.renderCategoryForm(w, r, http.StatusUnprocessableEntity, form, errs, "", "")
		return
	}

	cat, err := a.categories.Create(r.Context(), form.Input())
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		slog.Warn("create category failed", "error", err)
		a.renderCategoryForm(w, r, http.StatusUnprocessableEntity, form, nil, "", api.UserMessage(err))
		return
	}

	a.record(r, "category", cat.ID, cat.Name, store.ActionCreate)
	render.AddFlash(w, r, render.FlashSuccess, "Category created.")
	middleware.Redirect(w, r, "/admin/categories")
}

// CategoryEdit handles GET /admin/categories/{id}/edit.
func (a *Admin) CategoryEdit(w http.ResponseWriter, r *http.Request) {
	cat, err := a.categories.FindByID(r.Context(), chi.URLParam(r, "id"))
	if a.failLoad(w, r, err, "category", cat != nil) {
		return
	}
	a.renderCategoryForm(w, r, http.StatusOK, forms.CategoryFromModel(cat), nil, cat.ID, "")
}

// CategoryUpdate handles PUT /admin/categories/{id} and its POST fallback.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.CategoryFromValues(r.PostForm)
	if errs := form.Validate(); !errs.Valid() {
		a.renderCategoryForm(w, r, http.StatusUnprocessableEntity, form, errs, id, "")
		return
	}

	cat, err := a.categories.Update(r.Context(), id, form.Input())
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		slog.Warn("update category failed", "category_id", id, "error", err)
		a.renderCategoryForm(w, r, http.StatusUnprocessableEntity, form, nil, id, api.UserMessage(err))
		return
	}

	a.record(r, "category", cat.ID, cat.Name, store.ActionUpdate)
	render.AddFlash(w, r, render.FlashSuccess, "Category updated.")
	middleware.Redirect(w, r, "/admin/categories")
}

// CategoryDelete handles DELETE /admin/categories/{id} and its POST fallback.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	title := id
	if cat, err := a.categories.FindByID(r.Context(), id); err == nil && cat != nil {
		title = cat.Name
	}

	if err := a.categories.Delete(r.Context(), id); err != nil {
		a.failAction(w, r, err, "/admin/categories")
		return
	}

	a.record(r, "category", id, title, store.ActionDelete)
	render.AddFlash(w, r, render.FlashSuccess, "Category deleted.")
	middleware.Redirect(w, r, "/admin/categories")
}

func (a *Admin) renderCategoryForm(w http.ResponseWriter, r *http.Request, status int, form *forms.Category, errs forms.Errors, id, errMsg string) {
	title := "New category"
	if id != "" {
		title = "Edit category"
	}
	a.renderer.PageStatus(w, r, status, "category_form", &render.PageData{
		Title:   title,
		Section: menu.Categories,
		Data: map[string]any{
			"Form":   form,
			"Errors": errs,
			"IsNew":  id == "",
			"ID":     id,
			"Error":  errMsg,
		},
	})
}

// --- Tags ---

// TagsList handles GET /admin/tags.
func (a *Admin) TagsList(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	page, err := a.tags.List(r.Context(), params)
	msg, ok := a.listError(w, r, err)
	if !ok {
		return
	}

	var items []models.Tag
	pager := render.NewPager(menu.PathOf(menu.Tags), params.Search, params.Page, 1, 0)
	if page != nil {
		items = page.Items
		pager = render.NewPager(pager.Base, params.Search, page.Page, page.TotalPages(), page.Total)
	}

	a.renderer.Page(w, r, "tags_list", &render.PageData{
		Title:   "Tags",
		Section: menu.Tags,
		Data: map[string]any{
			"Tags":   items,
			"Search": params.Search,
			"Pager":  pager,
			"Error":  msg,
		},
	})
}

// TagNew handles GET /admin/tags/new.
func (a *Admin) TagNew(w http.ResponseWriter, r *http.Request) {
	a.renderTagForm(w, r, http.StatusOK, &forms.Tag{}, nil, "", "")
}

// TagCreate handles POST /admin/tags.
func (a *Admin) TagCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.TagFromValues(r.PostForm)
	if errs := form.Validate(); !errs.Valid() {
		a.renderTagForm(w, r, http.StatusUnprocessableEntity, form, errs, "", "")
		return
	}

	tag, err := a.tags.Create(r.Context(), form.Input())
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		slog.Warn("create tag failed", "error", err)
		a.renderTagForm(w, r, http.StatusUnprocessableEntity, form, nil, "", api.UserMessage(err))
		return
	}

	a.record(r, "tag", tag.ID, tag.Name, store.ActionCreate)
	render.AddFlash(w, r, render.FlashSuccess, "Tag created.")
	middleware.Redirect(w, r, "/admin/tags")
}

// TagEdit handles GET /admin/tags/{id}/edit.
func (a *Admin) TagEdit(w http.ResponseWriter, r *http.Request) {
	tag, err := a.tags.FindByID(r.Context(), chi.URLParam(r, "id"))
	if a.failLoad(w, r, err, "tag", tag != nil) {
		return
	}
	a.renderTagForm(w, r, http.StatusOK, forms.TagFromModel(tag), nil, tag.ID, "")
}

// TagUpdate handles PUT /admin/tags/{id} and its POST fallback.
func (a *Admin) TagUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.TagFromValues(r.PostForm)
	if errs := form.Validate(); !errs.Valid() {
		a.renderTagForm(w, r, http.StatusUnprocessableEntity, form, errs, id, "")
		return
	}

	tag, err := a.tags.Update(r.Context(), id, form.Input())
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		slog.Warn("update tag failed", "tag_id", id, "error", err)
		a.renderTagForm(w, r, http.StatusUnprocessableEntity, form, nil, id, api.UserMessage(err))
		return
	}

	a.record(r, "tag", tag.ID, tag.Name, store.ActionUpdate)
	render.AddFlash(w, r, render.FlashSuccess, "Tag updated.")
	middleware.Redirect(w, r, "/admin/tags")
}

// TagDelete handles DELETE /admin/tags/{id} and its POST fallback.
func (a *Admin) TagDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	title := id
	if tag, err := a.tags.FindByID(r.Context(), id); err == nil && tag != nil {
		title = tag.Name
	}

	if err := a.tags.Delete(r.Context(), id); err != nil {
		a.failAction(w, r, err, "/admin/tags")
		return
	}

	a.record(r, "tag", id, title, store.ActionDelete)
	render.AddFlash(w, r, render.FlashSuccess, "Tag deleted.")
	middleware.Redirect(w, r, "/admin/tags")
}

func (a *Admin) renderTagForm(w http.ResponseWriter, r *http.Request, status int, form *forms.Tag, errs forms.Errors, id, errMsg string) {
	title := "New tag"
	if id != "" {
		title = "Edit tag"
	}
	a.renderer.PageStatus(w, r, status, "tag_form", &render.PageData{
		Title:   title,
		Section: menu.Tags,
		Data: map[string]any{
			"Form":   form,
			"Errors": errs,
			"IsNew":  id == "",
			"ID":     id,
			"Error":  errMsg,
		},
	})
}
