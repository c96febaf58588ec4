// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package forms parses and validates the dashboard's HTML forms. Each form
// type reads itself from url.Values, checks its fields and reports problems
// as an Errors map keyed by form field name, so templates can show the
// message next to the offending input.
package forms

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"blogdash/internal/slug"
)

// Errors holds the first validation message for each field.
type Errors map[string]string

// Add records msg for field unless the field already has an error.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Get returns the message for field or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Has reports whether field has an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Valid reports whether no errors were recorded.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// Password limits shared by the user and profile forms.
const (
	minPasswordLen = 8
	maxPasswordLen = 64
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func value(v url.Values, key string) string {
	return strings.TrimSpace(v.Get(key))
}

// length checks that s has between min and max runes. A zero min allows
// an empty value.
func length(errs Errors, field, label, s string, min, max int) {
	n := utf8.RuneCountInString(s)
	switch {
	case min > 0 && n == 0:
		errs.Add(field, label+" is required.")
	case n < min:
		errs.Add(field, fmt.Sprintf("%s must be at least %d characters.", label, min))
	case n > max:
		errs.Add(field, fmt.Sprintf("%s must be at most %d characters.", label, max))
	}
}

func checkSlug(errs Errors, s string, max int) {
	if s == "" {
		return
	}
	if utf8.RuneCountInString(s) > max {
		errs.Add("slug", fmt.Sprintf("Slug must be at most %d characters.", max))
		return
	}
	if !slug.Valid(s) {
		errs.Add("slug", "Slug may only contain lowercase letters, numbers and single hyphens.")
	}
}

func checkEmail(errs Errors, s string) {
	switch {
	case s == "":
		errs.Add("email", "Email is required.")
	case utf8.RuneCountInString(s) > 254 || !emailPattern.MatchString(s):
		errs.Add("email", "Enter a valid email address.")
	}
}

// checkPassword applies the strength rules to a new password.
func checkPassword(errs Errors, field, s string) {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		errs.Add(field, "Password is required.")
		return
	}
	if n < minPasswordLen || n > maxPasswordLen {
		errs.Add(field, fmt.Sprintf("Password must be %d to %d characters.", minPasswordLen, maxPasswordLen))
		return
	}
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		errs.Add(field, "Password needs a lowercase letter, an uppercase letter and a digit.")
	}
}

func checkConfirmation(errs Errors, field, password, confirm string) {
	if password != confirm {
		errs.Add(field, "Passwords do not match.")
	}
}

// absoluteHTTPURL reports whether s is an http or https URL with a host.
func absoluteHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
