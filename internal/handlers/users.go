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

// UsersList handles GET /admin/users.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	page, err := a.users.List(r.Context(), params)
	msg, ok := a.listError(w, r, err)
	if !ok {
		return
	}

	var items []models.User
	pager := render.NewPager(menu.PathOf(menu.Users), params.Search, params.Page, 1, 0)
	if page != nil {
		items = page.Items
		pager = render.NewPager(pager.Base, params.Search, page.Page, page.TotalPages(), page.Total)
	}

	a.renderer.Page(w, r, "users_list", &render.PageData{
		Title:   "Users",
		Section: menu.Users,
		Data: map[string]any{
			"Users":  items,
			"Search": params.Search,
			"Pager":  pager,
			"Error":  msg,
		},
	})
}

// UserNew handles GET /admin/users/new.
func (a *Admin) UserNew(w http.ResponseWriter, r *http.Request) {
	form := &forms.User{Role: string(models.RoleAuthor)}
	a.renderUserForm(w, r, http.StatusOK, form, nil, "", "")
}

// UserCreate handles POST /admin/users.
func (a *Admin) UserCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.UserFromValues(r.PostForm)
	if errs := form.ValidateCreate(); !errs.Valid() {
		a.renderUserForm(w, r, http.StatusUnprocessableEntity, form, errs, "", "")
		return
	}

	user, err := a.users.Create(r.Context(), form.Input())
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		slog.Warn("create user failed", "error", err)
		a.renderUserForm(w, r, http.StatusUnprocessableEntity, form, nil, "", api.UserMessage(err))
		return
	}

	a.record(r, "user", user.ID, user.Name, store.ActionCreate)
	render.AddFlash(w, r, render.FlashSuccess, "User created.")
	middleware.Redirect(w, r, "/admin/users")
}

// UserEdit handles GET /admin/users/{id}/edit.
func (a *Admin) UserEdit(w http.ResponseWriter, r *http.Request) {
	user, err := a.users.FindByID(r.Context(), chi.URLParam(r, "id"))
	if a.failLoad(w, r, err, "user", user != nil) {
		return
	}
	a.renderUserForm(w, r, http.StatusOK, forms.UserFromModel(user), nil, user.ID, "")
}

// UserUpdate handles PUT /admin/users/{id} and its POST fallback. Editing
// one's own account refreshes the session identity.
func (a *Admin) UserUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.UserFromValues(r.PostForm)
	if errs := form.ValidateUpdate(); !errs.Valid() {
		a.renderUserForm(w, r, http.StatusUnprocessableEntity, form, errs, id, "")
		return
	}

	user, err := a.users.Update(r.Context(), id, form.Input())
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		slog.Warn("update user failed", "user_id", id, "error", err)
		a.renderUserForm(w, r, http.StatusUnprocessableEntity, form, nil, id, api.UserMessage(err))
		return
	}

	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.UserID == user.ID {
		a.syncSession(r, user)
	}
	a.record(r, "user", user.ID, user.Name, store.ActionUpdate)
	render.AddFlash(w, r, render.FlashSuccess, "User updated.")
	middleware.Redirect(w, r, "/admin/users")
}

// UserDelete handles DELETE /admin/users/{id} and its POST fallback.
func (a *Admin) UserDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.UserID == id {
		render.AddFlash(w, r, render.FlashError, "You cannot delete your own account.")
		middleware.Redirect(w, r, "/admin/users")
		return
	}

	title := id
	if user, err := a.users.FindByID(r.Context(), id); err == nil && user != nil {
		title = user.Name
	}

	if err := a.users.Delete(r.Context(), id); err != nil {
		a.failAction(w, r, err, "/admin/users")
		return
	}

	a.record(r, "user", id, title, store.ActionDelete)
	render.AddFlash(w, r, render.FlashSuccess, "User deleted.")
	middleware.Redirect(w, r, "/admin/users")
}

func (a *Admin) renderUserForm(w http.ResponseWriter, r *http.Request, status int, form *forms.User, errs forms.Errors, id, errMsg string) {
	title := "New user"
	if id != "" {
		title = "Edit user"
	}
	// Never echo passwords back into the form.
	form.Password, form.PasswordConfirm = "", ""
	a.renderer.PageStatus(w, r, status, "user_form", &render.PageData{
		Title:   title,
		Section: menu.Users,
		Data: map[string]any{
			"Form":   form,
			"Errors": errs,
			"IsNew":  id == "",
			"ID":     id,
			"Error":  errMsg,
		},
	})
}

// syncSession copies changed identity fields of the signed-in user into
// the session. Failures only cost a stale sidebar name.
func (a *Admin) syncSession(r *http.Request, user *models.User) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return
	}
	if sess.Name == user.Name && sess.Email == user.Email && (sess.Role == user.Role || !user.Role.Valid()) {
		return
	}
	updated := *sess
	updated.Name = user.Name
	updated.Email = user.Email
	if user.Role.Valid() {
		updated.Role = user.Role
	}
	if err := a.sessions.Update(r.Context(), &updated); err != nil {
		slog.Warn("session sync failed", "user_id", user.ID, "error", err)
		return
	}
	*sess = updated
}
