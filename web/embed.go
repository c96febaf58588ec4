// Package web provides embedded static assets (CSS, JS) for the admin interface.
// They are served at /static/; HTMX itself is loaded from unpkg.
package web

import "embed"

// StaticFS embeds the web/static/ directory tree: the stylesheet, the
// notification script and the blog editor.
//
//go:embed all:static
var StaticFS embed.FS
