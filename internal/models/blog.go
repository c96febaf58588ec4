// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"
)

// BlogStatus represents the publishing state of a blog post.
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusPublished BlogStatus = "published"
)

// Valid reports whether s is a known status.
func (s BlogStatus) Valid() bool {
	return s == BlogStatusDraft || s == BlogStatusPublished
}

// Blog represents a post as returned by the API. Content holds the editor's
// structured document JSON untouched; it is only converted to HTML for
// read views.
type Blog struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Content     json.RawMessage `json:"content"`
	Thumbnail   string          `json:"thumbnail"`
	Status      BlogStatus      `json:"status"`
	Category    *Category       `json:"category,omitempty"`
	Tags        []Tag           `json:"tags"`
	Author      *User           `json:"author,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsPublished returns true if the post is in published status.
func (b *Blog) IsPublished() bool {
	return b.Status == BlogStatusPublished
}

// CategoryID returns the assigned category's ID or "".
func (b *Blog) CategoryID() string {
	if b.Category == nil {
		return ""
	}
	return b.Category.ID
}

// HasTag reports whether the post carries the tag with the given ID.
// Used by the edit form to pre-check tag boxes.
func (b *Blog) HasTag(id string) bool {
	for _, t := range b.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// AuthoredBy reports whether userID wrote the post.
func (b *Blog) AuthoredBy(userID string) bool {
	return b.Author != nil && b.Author.ID == userID
}

// BlogInput is the create/update payload for a blog post.
type BlogInput struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Content     json.RawMessage `json:"content"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Status      BlogStatus      `json:"status"`
	CategoryID  string          `json:"categoryId"`
	TagIDs      []string        `json:"tagIds"`
}
