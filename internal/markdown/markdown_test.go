package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"heading", "## Release notes", []string{"<h2>Release notes</h2>"}},
		{"inline marks", "a *soft* and **bold** ~~old~~ `code`", []string{"<em>soft</em>", "<strong>bold</strong>", "<del>old</del>", "<code>code</code>"}},
		{"ordered list", "1. one\n2. two", []string{"<ol>", "<li>one</li>", "<li>two</li>"}},
		{"quote", "> quoted", []string{"<blockquote>", "quoted"}},
		{"fenced code", "```go\nfmt.Println()\n```", []string{`<code class="language-go">`, "fmt.Println()"}},
		{"bare url", "docs at https://go.dev/doc", []string{`<a href="https://go.dev/doc">`}},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<td>1</td>"}},
		{"task list", "- [x] done", []string{`type="checkbox"`}},
		{"hard wrap", "line one\nline two", []string{"<br />"}},
		{"raw html kept", "<u>under</u>", []string{"<u>under</u>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.in)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("ToHTML(%q) = %q, missing %q", tt.in, got, w)
				}
			}
		})
	}
}

func TestToHTMLSkipsFrontMatter(t *testing.T) {
	got, err := ToHTML("---\ntitle: Launch\ntags: [go]\n---\n# Launch\n")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "title:") || !strings.Contains(got, "<h1>Launch</h1>") {
		t.Errorf("got %q", got)
	}
}

func TestStripFrontMatter(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"none", "# Hi", "# Hi"},
		{"block", "---\na: 1\n---\nbody", "body"},
		{"crlf", "---\r\na: 1\r\n---\r\nbody", "body"},
		{"dots close", "---\na: 1\n...\nbody", "body"},
		{"unterminated", "---\na: 1\nbody", "---\na: 1\nbody"},
		{"rule later", "intro\n---\nmore", "intro\n---\nmore"},
		{"bom", "\ufeff---\na: 1\n---\nbody", "body"},
	}
	for _, tt := range tests {
		if got := StripFrontMatter(tt.in); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}
