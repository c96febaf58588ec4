package render

import (
	"net/url"
	"strconv"
)

// Pager describes list pagination for the "pagination" template.
type Pager struct {
	Base    string     // list path, e.g. /admin/blogs
	Search  string     // current search term
	Filters url.Values // extra query parameters kept across pages
	Page    int
	Pages   int
	Total   int
}

// NewPager builds a Pager, clamping page into [1, pages].
func NewPager(base, search string, page, pages, total int) Pager {
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	return Pager{Base: base, Search: search, Page: page, Pages: pages, Total: total}
}

// WithFilter returns a copy of p that keeps key=value in page links.
// Empty values are skipped.
func (p Pager) WithFilter(key, value string) Pager {
	if value == "" {
		return p
	}
	filters := url.Values{}
	for k, v := range p.Filters {
		filters[k] = append([]string(nil), v...)
	}
	filters.Set(key, value)
	p.Filters = filters
	return p
}

func (p Pager) HasMany() bool { return p.Pages > 1 }
func (p Pager) HasPrev() bool { return p.Page > 1 }
func (p Pager) HasNext() bool { return p.Page < p.Pages }
func (p Pager) Prev() int     { return p.Page - 1 }
func (p Pager) Next() int     { return p.Page + 1 }

// URL returns the list URL for page n, keeping the search term and filters.
func (p Pager) URL(n int) string {
	q := url.Values{}
	for k, v := range p.Filters {
		q[k] = v
	}
	if n > 1 {
		q.Set("page", strconv.Itoa(n))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if len(q) == 0 {
		return p.Base
	}
	return p.Base + "?" + q.Encode()
}
