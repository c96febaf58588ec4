package forms

import (
	"net/url"
	"strings"

	"blogdash/internal/models"
)

const (
	minUserName = 2
	maxUserName = 50
)

// Login is the sign-in form.
type Login struct {
	Email    string
	Password string
}

// LoginFromValues reads the sign-in form. Passwords are never trimmed.
func LoginFromValues(v url.Values) *Login {
	return &Login{Email: strings.ToLower(value(v, "email")), Password: v.Get("password")}
}

// Validate checks the sign-in form.
func (f *Login) Validate() Errors {
	errs := Errors{}
	checkEmail(errs, f.Email)
	if f.Password == "" {
		errs.Add("password", "Password is required.")
	}
	return errs
}

// User is the create/edit user form. On update an empty password keeps the
// current one.
type User struct {
	Name            string
	Email           string
	Role            string
	Password        string
	PasswordConfirm string
}

// UserFromValues reads the user form.
func UserFromValues(v url.Values) *User {
	return &User{
		Name:            value(v, "name"),
		Email:           strings.ToLower(value(v, "email")),
		Role:            value(v, "role"),
		Password:        v.Get("password"),
		PasswordConfirm: v.Get("password_confirm"),
	}
}

// UserFromModel pre-fills the edit form.
func UserFromModel(u *models.User) *User {
	return &User{Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

// ValidateCreate checks the form for a new account; a password is required.
func (f *User) ValidateCreate() Errors {
	errs := f.validateCommon()
	checkPassword(errs, "password", f.Password)
	checkConfirmation(errs, "password_confirm", f.Password, f.PasswordConfirm)
	return errs
}

// ValidateUpdate checks the form for an existing account. The password is
// only checked when one was entered.
func (f *User) ValidateUpdate() Errors {
	errs := f.validateCommon()
	if f.Password != "" || f.PasswordConfirm != "" {
		checkPassword(errs, "password", f.Password)
		checkConfirmation(errs, "password_confirm", f.Password, f.PasswordConfirm)
	}
	return errs
}

func (f *User) validateCommon() Errors {
	errs := Errors{}
	length(errs, "name", "Name", f.Name, minUserName, maxUserName)
	checkEmail(errs, f.Email)
	role, ok := models.ParseRole(f.Role)
	if !ok {
		errs.Add("role", "Choose a valid role.")
	} else {
		f.Role = string(role)
	}
	return errs
}

// Input returns the API payload. An empty password is omitted.
func (f *User) Input() models.UserInput {
	return models.UserInput{
		Name:     f.Name,
		Email:    f.Email,
		Role:     models.Role(f.Role),
		Password: f.Password,
	}
}

// PasswordChange is the profile form for changing one's own password.
type PasswordChange struct {
	Current string
	New     string
	Confirm string
}

// PasswordChangeFromValues reads the password form.
func PasswordChangeFromValues(v url.Values) *PasswordChange {
	return &PasswordChange{
		Current: v.Get("current_password"),
		New:     v.Get("new_password"),
		Confirm: v.Get("new_password_confirm"),
	}
}

// Validate checks the password form.
func (f *PasswordChange) Validate() Errors {
	errs := Errors{}
	if f.Current == "" {
		errs.Add("current_password", "Current password is required.")
	}
	checkPassword(errs, "new_password", f.New)
	checkConfirmation(errs, "new_password_confirm", f.New, f.Confirm)
	if f.Current != "" && f.New == f.Current {
		errs.Add("new_password", "New password must differ from the current one.")
	}
	return errs
}

// Input returns the API payload.
func (f *PasswordChange) Input() models.PasswordChange {
	return models.PasswordChange{CurrentPassword: f.Current, NewPassword: f.New}
}
