// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// FallbackMessage is shown when an error carries no usable message.
const FallbackMessage = "Something went wrong. Please try again."

// ErrSessionExpired is returned when the API rejected the session and the
// refresh token could not renew it. The user must sign in again.
var ErrSessionExpired = errors.New("api: session expired")

// APIError is a non-2xx response from the blog API.
type APIError struct {
	Status  int
	Message string // extracted from the error envelope, may be empty
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsForbidden reports whether err is a 403 from the API.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// UserMessage maps any error from this package to the text shown in a
// notification: the API's own message when it sent one, otherwise
// FallbackMessage.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionExpired) {
		return "Your session has expired. Please sign in again."
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return FallbackMessage
}

// messagePaths are tried in order against the error body.
var messagePaths = []string{
	"message",
	"error.message",
	"error",
	"errors.0.message",
	"errors.0.msg",
	"errors",
}

// extractMessage pulls a human-readable message out of the conventional
// error envelopes: {"message": "..."}, {"message": ["a", "b"]},
// {"error": "..."}, {"error": {"message": "..."}}, {"errors": [...]}.
func extractMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range messagePaths {
		res := gjson.GetBytes(body, path)
		if msg := resultText(res); msg != "" {
			return msg
		}
	}
	return ""
}

func resultText(res gjson.Result) string {
	switch {
	case res.Type == gjson.String:
		return strings.TrimSpace(res.Str)
	case res.IsArray():
		var parts []string
		for _, item := range res.Array() {
			if item.Type == gjson.String && strings.TrimSpace(item.Str) != "" {
				parts = append(parts, strings.TrimSpace(item.Str))
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
