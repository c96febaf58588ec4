// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
)

// Page is one page of a list endpoint. The API answers with
// {"data": [...], "total": n, "page": p, "limit": l}; a bare JSON array is
// accepted too and treated as a single complete page.
type Page[T any] struct {
	Items []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Page[T]) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*p = Page[T]{Items: items, Total: len(items), Page: 1, Limit: len(items)}
		return nil
	}

	var aux pageJSON[T]
	if err := json.Unmarshal(trimmed, &aux); err != nil {
		return err
	}
	*p = Page[T](aux)
	if p.Total == 0 {
		p.Total = len(p.Items)
	}
	return nil
}

// pageJSON has Page's fields without its methods, so decoding into it
// doesn't recurse into UnmarshalJSON.
type pageJSON[T any] Page[T]

// wholeBody marks Page as decoding the full response, never an unwrapped
// "data" field.
func (p *Page[T]) wholeBody() {}

// TotalPages returns the page count for the current limit (at least 1).
func (p *Page[T]) TotalPages() int {
	if p.Limit <= 0 || p.Total <= p.Limit {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// HasPrev reports whether a previous page exists.
func (p *Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p *Page[T]) HasNext() bool { return p.Page < p.TotalPages() }

// ListParams are the common query parameters of list endpoints.
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

// Query encodes the params, skipping zero values.
func (lp ListParams) Query() url.Values {
	q := url.Values{}
	if lp.Page > 0 {
		q.Set("page", strconv.Itoa(lp.Page))
	}
	if lp.Limit > 0 {
		q.Set("limit", strconv.Itoa(lp.Limit))
	}
	if lp.Search != "" {
		q.Set("search", lp.Search)
	}
	return q
}
