// Package markdown turns Markdown post bodies into HTML with goldmark. The
// result feeds the rich-text importer and is never served as is, so raw
// HTML is kept for the importer to filter.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
		extension.TaskList,
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
		html.WithXHTML(),
		html.WithHardWraps(),
	),
)

// ToHTML renders source. A leading front matter block ("---" fenced, as
// written by static site generators) is dropped first.
func ToHTML(source string) (string, error) {
	src := []byte(StripFrontMatter(source))
	doc := md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, src, doc); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return buf.String(), nil
}

// StripFrontMatter removes a YAML front matter block from the start of
// source. Source without a closed block is returned unchanged.
func StripFrontMatter(source string) string {
	s := strings.TrimPrefix(source, "\ufeff")
	first, rest, ok := strings.Cut(s, "\n")
	if !ok || strings.TrimRight(first, " \r") != "---" {
		return source
	}
	for rest != "" {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		if t := strings.TrimRight(line, " \r"); t == "---" || t == "..." {
			return strings.TrimLeft(rest, "\r\n")
		}
	}
	return source
}
