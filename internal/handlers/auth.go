// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"blogdash/internal/api"
	"blogdash/internal/forms"
	"blogdash/internal/middleware"
	"blogdash/internal/render"
	"blogdash/internal/session"
	"blogdash/internal/store"
)

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	renderer *render.Renderer
	sessions Sessions
	auth     *store.AuthStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(renderer *render.Renderer, sessions Sessions, auth *store.AuthStore) *Auth {
	return &Auth{
		renderer: renderer,
		sessions: sessions,
		auth:     auth,
	}
}

// LoginPage renders the login form.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	// Already signed in: go to the dashboard.
	if middleware.SessionFromCtx(r.Context()) != nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	a.renderLogin(w, r, http.StatusOK, "", nil, "")
}

// LoginSubmit processes the login form. The API checks the credentials;
// its tokens are kept server-side in the new session.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderLogin(w, r, http.StatusBadRequest, "", nil, "The form could not be read.")
		return
	}
	form := forms.LoginFromValues(r.PostForm)
	if errs := form.Validate(); !errs.Valid() {
		a.renderLogin(w, r, http.StatusUnprocessableEntity, form.Email, errs, "")
		return
	}

	user, creds, err := a.auth.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		status := loginFailureStatus(err)
		if status == http.StatusUnauthorized {
			slog.Info("login rejected", "email", form.Email, "error", err)
		} else {
			slog.Warn("login failed", "email", form.Email, "error", err)
		}
		a.renderLogin(w, r, status, form.Email, nil, api.UserMessage(err))
		return
	}

	data := &session.Data{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}
	if _, err := a.sessions.Create(r.Context(), w, data, creds); err != nil {
		slog.Error("session create failed", "error", err)
		a.renderLogin(w, r, http.StatusInternalServerError, form.Email, nil, api.FallbackMessage)
		return
	}

	slog.Info("user signed in", "user_id", user.ID, "role", user.Role)
	render.AddFlash(w, r, render.FlashSuccess, "Welcome back, "+user.Name+".")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Logout ends the API session and destroys the local one.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromCtx(r.Context()) != nil {
		if err := a.auth.Logout(r.Context()); err != nil {
			slog.Warn("api logout failed", "error", err)
		}
	}
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	render.AddFlash(w, r, render.FlashInfo, "You have been signed out.")
	middleware.Redirect(w, r, middleware.LoginPath)
}

// loginFailureStatus is 401 when the API refused the credentials (any 4xx)
// and 502 otherwise, so an API outage is not counted by the login limiter.
func loginFailureStatus(err error) int {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}

func (a *Auth) renderLogin(w http.ResponseWriter, r *http.Request, status int, email string, errs forms.Errors, errMsg string) {
	a.renderer.PageStatus(w, r, status, "login", &render.PageData{
		Title: "Sign In",
		Data: map[string]any{
			"Email":  email,
			"Errors": errs,
			"Error":  errMsg,
		},
	})
}
