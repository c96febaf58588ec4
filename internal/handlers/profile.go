package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"blogdash/internal/api"
	"blogdash/internal/forms"
	"blogdash/internal/menu"
	"blogdash/internal/middleware"
	"blogdash/internal/models"
	"blogdash/internal/render"
)

// Profile handles GET /admin/profile. The account is reloaded from the API
// so the page reflects changes made elsewhere; the session copy is the
// fallback.
func (a *Admin) Profile(w http.ResponseWriter, r *http.Request) {
	user, errMsg, ok := a.loadProfile(w, r)
	if !ok {
		return
	}
	a.renderProfile(w, r, http.StatusOK, user, nil, errMsg)
}

// ProfilePassword handles POST /admin/profile/password.
func (a *Admin) ProfilePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.PasswordChangeFromValues(r.PostForm)
	if errs := form.Validate(); !errs.Valid() {
		a.renderProfile(w, r, http.StatusUnprocessableEntity, a.sessionUser(r), errs, "")
		return
	}

	if err := a.auth.ChangePassword(r.Context(), form.Input()); err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			a.expire(w, r)
			return
		}
		slog.Warn("password change failed", "error", err)
		a.renderProfile(w, r, http.StatusUnprocessableEntity, a.sessionUser(r), nil, api.UserMessage(err))
		return
	}

	render.AddFlash(w, r, render.FlashSuccess, "Password updated.")
	middleware.Redirect(w, r, "/admin/profile")
}

func (a *Admin) loadProfile(w http.ResponseWriter, r *http.Request) (*models.User, string, bool) {
	user, err := a.auth.Me(r.Context())
	if errors.Is(err, api.ErrSessionExpired) {
		a.expire(w, r)
		return nil, "", false
	}
	if err != nil {
		slog.Warn("load profile failed", "error", err)
		return a.sessionUser(r), api.UserMessage(err), true
	}
	a.syncSession(r, user)
	return user, "", true
}

func (a *Admin) sessionUser(r *http.Request) *models.User {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return nil
	}
	u := sess.User()
	return &u
}

func (a *Admin) renderProfile(w http.ResponseWriter, r *http.Request, status int, user *models.User, errs forms.Errors, errMsg string) {
	a.renderer.PageStatus(w, r, status, "profile", &render.PageData{
		Title:   "Profile",
		Section: menu.Profile,
		Data: map[string]any{
			"User":   user,
			"Errors": errs,
			"Error":  errMsg,
		},
	})
}
