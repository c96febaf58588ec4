package richtext

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy sanitizes rendered documents. Attributes come from untrusted
// editor JSON, so the rendered markup is never trusted on its own.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "s")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#.-]+$`)).OnElements("code")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// ToHTML renders the document as sanitized HTML. Unknown node types render
// their children; unknown marks are ignored.
func ToHTML(doc *Node) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	renderNode(&b, doc)
	return policy.Sanitize(b.String())
}

// RenderJSON parses raw and renders it. Malformed input is an error.
func RenderJSON(raw []byte) (string, error) {
	doc, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return ToHTML(doc), nil
}

func renderNode(b *strings.Builder, n *Node) {
	switch n.Type {
	case TypeParagraph:
		wrap(b, "<p>", "</p>", n)
	case TypeHeading:
		level := n.attrInt("level", 1)
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		tag := "h" + strconv.Itoa(level)
		wrap(b, "<"+tag+">", "</"+tag+">", n)
	case TypeBulletList:
		wrap(b, "<ul>", "</ul>", n)
	case TypeOrderedList:
		open := "<ol>"
		if start := n.attrInt("start", 1); start > 1 {
			open = `<ol start="` + strconv.Itoa(start) + `">`
		}
		wrap(b, open, "</ol>", n)
	case TypeListItem:
		wrap(b, "<li>", "</li>", n)
	case TypeBlockquote:
		wrap(b, "<blockquote>", "</blockquote>", n)
	case TypeCodeBlock:
		b.WriteString("<pre><code")
		if lang := n.attrString("language"); lang != "" {
			b.WriteString(` class="language-` + html.EscapeString(lang) + `"`)
		}
		b.WriteString(">")
		b.WriteString(html.EscapeString(rawText(n)))
		b.WriteString("</code></pre>")
	case TypeHorizontalRule:
		b.WriteString("<hr>")
	case TypeHardBreak:
		b.WriteString("<br>")
	case TypeImage:
		src := n.attrString("src")
		if src == "" {
			return
		}
		b.WriteString(`<img src="` + html.EscapeString(src) + `"`)
		if alt := n.attrString("alt"); alt != "" {
			b.WriteString(` alt="` + html.EscapeString(alt) + `"`)
		}
		if title := n.attrString("title"); title != "" {
			b.WriteString(` title="` + html.EscapeString(title) + `"`)
		}
		b.WriteString(">")
	case TypeText:
		renderText(b, n)
	default:
		renderChildren(b, n)
	}
}

func wrap(b *strings.Builder, open, close string, n *Node) {
	b.WriteString(open)
	renderChildren(b, n)
	b.WriteString(close)
}

func renderChildren(b *strings.Builder, n *Node) {
	for i := range n.Content {
		renderNode(b, &n.Content[i])
	}
}

func renderText(b *strings.Builder, n *Node) {
	var closers []string
	for _, m := range n.Marks {
		switch m.Type {
		case MarkBold:
			b.WriteString("<strong>")
			closers = append(closers, "</strong>")
		case MarkItalic:
			b.WriteString("<em>")
			closers = append(closers, "</em>")
		case MarkUnderline:
			b.WriteString("<u>")
			closers = append(closers, "</u>")
		case MarkStrike:
			b.WriteString("<s>")
			closers = append(closers, "</s>")
		case MarkCode:
			b.WriteString("<code>")
			closers = append(closers, "</code>")
		case MarkLink:
			href := stringAttr(m.Attrs, "href")
			if href == "" {
				continue
			}
			b.WriteString(`<a href="` + html.EscapeString(href) + `">`)
			closers = append(closers, "</a>")
		}
	}
	b.WriteString(html.EscapeString(n.Text))
	for i := len(closers) - 1; i >= 0; i-- {
		b.WriteString(closers[i])
	}
}

// rawText concatenates descendant text without formatting.
func rawText(n *Node) string {
	if n.Type == TypeText {
		return n.Text
	}
	if n.Type == TypeHardBreak {
		return "\n"
	}
	var sb strings.Builder
	for i := range n.Content {
		sb.WriteString(rawText(&n.Content[i]))
	}
	return sb.String()
}
