package richtext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"blogdash/internal/markdown"
)

var spaceRun = regexp.MustCompile(`\s+`)

// skipped elements never contribute content.
var skipped = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Iframe: true, atom.Object: true,
	atom.Template: true, atom.Noscript: true, atom.Head: true, atom.Title: true,
	atom.Form: true, atom.Button: true, atom.Select: true, atom.Textarea: true,
}

// FromHTML builds a document from an HTML fragment. Formatting the
// document model can't express is dropped and its text kept.
func FromHTML(src string) (*Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, fmt.Errorf("richtext: parse html: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return NewDoc(blockChildren(body)...), nil
}

// FromMarkdown builds a document from Markdown source.
func FromMarkdown(src string) (*Node, error) {
	h, err := markdown.ToHTML(src)
	if err != nil {
		return nil, err
	}
	return FromHTML(h)
}

// blockChildren converts the children of a container into block nodes.
// Runs of inline content are wrapped in paragraphs.
func blockChildren(n *html.Node) []Node {
	var out, inline []Node
	flush := func() {
		if p := paragraph(inline); p != nil {
			out = append(out, *p)
		}
		inline = nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skipped[c.DataAtom] {
			continue
		}
		if c.Type == html.ElementNode && isBlockElement(c.DataAtom) {
			flush()
			out = append(out, blockNodes(c)...)
			continue
		}
		inline = append(inline, inlineNodes(c, nil)...)
	}
	flush()
	return out
}

// paragraph trims the inline run and wraps it, or returns nil when it
// holds only whitespace.
func paragraph(inline []Node) *Node {
	inline = trimInline(inline)
	if len(inline) == 0 {
		return nil
	}
	return &Node{Type: TypeParagraph, Content: inline}
}

func blockNodes(n *html.Node) []Node {
	switch n.DataAtom {
	case atom.P:
		content := trimInline(inlineChildren(n, nil))
		return []Node{{Type: TypeParagraph, Content: content}}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level, _ := strconv.Atoi(n.Data[1:])
		return []Node{{
			Type:    TypeHeading,
			Attrs:   map[string]any{"level": level},
			Content: trimInline(inlineChildren(n, nil)),
		}}
	case atom.Ul:
		return []Node{{Type: TypeBulletList, Content: listItems(n)}}
	case atom.Ol:
		list := Node{Type: TypeOrderedList, Content: listItems(n)}
		if start, err := strconv.Atoi(attr(n, "start")); err == nil && start > 1 {
			list.Attrs = map[string]any{"start": start}
		}
		return []Node{list}
	case atom.Li:
		return []Node{listItem(n)}
	case atom.Blockquote:
		return []Node{{Type: TypeBlockquote, Content: blockChildren(n)}}
	case atom.Pre:
		return []Node{codeBlock(n)}
	case atom.Hr:
		return []Node{{Type: TypeHorizontalRule}}
	case atom.Img:
		if img := image(n); img != nil {
			return []Node{*img}
		}
		return nil
	}
	// div, section, article, table and friends: keep their blocks.
	return blockChildren(n)
}

func listItems(n *html.Node) []Node {
	var items []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			items = append(items, listItem(c))
		}
	}
	return items
}

func listItem(n *html.Node) Node {
	content := blockChildren(n)
	if len(content) == 0 {
		content = []Node{{Type: TypeParagraph}}
	}
	return Node{Type: TypeListItem, Content: content}
}

func codeBlock(n *html.Node) Node {
	block := Node{Type: TypeCodeBlock}
	target := n
	if c := firstElement(n, atom.Code); c != nil {
		target = c
		for _, class := range strings.Fields(attr(c, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok && lang != "" {
				block.Attrs = map[string]any{"language": lang}
				break
			}
		}
	}
	text := strings.TrimSuffix(textContent(target), "\n")
	if text != "" {
		block.Content = []Node{{Type: TypeText, Text: text}}
	}
	return block
}

func image(n *html.Node) *Node {
	src := attr(n, "src")
	if src == "" {
		return nil
	}
	attrs := map[string]any{"src": src}
	if alt := attr(n, "alt"); alt != "" {
		attrs["alt"] = alt
	}
	if title := attr(n, "title"); title != "" {
		attrs["title"] = title
	}
	return &Node{Type: TypeImage, Attrs: attrs}
}

func inlineChildren(n *html.Node, marks []Mark) []Node {
	var out []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, inlineNodes(c, marks)...)
	}
	return out
}

// inlineNodes converts n into text, hard break and image nodes, carrying
// the marks of its ancestors.
func inlineNodes(n *html.Node, marks []Mark) []Node {
	switch n.Type {
	case html.TextNode:
		text := spaceRun.ReplaceAllString(n.Data, " ")
		if text == "" {
			return nil
		}
		return []Node{{Type: TypeText, Text: text, Marks: cloneMarks(marks)}}
	case html.ElementNode:
	default:
		return nil
	}

	if skipped[n.DataAtom] {
		return nil
	}

	switch n.DataAtom {
	case atom.Br:
		return []Node{{Type: TypeHardBreak}}
	case atom.Img:
		if img := image(n); img != nil {
			return []Node{*img}
		}
		return nil
	case atom.Strong, atom.B:
		marks = withMark(marks, Mark{Type: MarkBold})
	case atom.Em, atom.I:
		marks = withMark(marks, Mark{Type: MarkItalic})
	case atom.U:
		marks = withMark(marks, Mark{Type: MarkUnderline})
	case atom.S, atom.Del, atom.Strike:
		marks = withMark(marks, Mark{Type: MarkStrike})
	case atom.Code:
		marks = withMark(marks, Mark{Type: MarkCode})
	case atom.A:
		if href := attr(n, "href"); href != "" {
			marks = withMark(marks, Mark{Type: MarkLink, Attrs: map[string]any{"href": href}})
		}
	}
	return inlineChildren(n, marks)
}

// trimInline drops leading and trailing whitespace of an inline run.
func trimInline(nodes []Node) []Node {
	for len(nodes) > 0 && nodes[0].Type == TypeText {
		nodes[0].Text = strings.TrimLeft(nodes[0].Text, " ")
		if nodes[0].Text != "" {
			break
		}
		nodes = nodes[1:]
	}
	for len(nodes) > 0 {
		last := &nodes[len(nodes)-1]
		if last.Type == TypeHardBreak {
			nodes = nodes[:len(nodes)-1]
			continue
		}
		if last.Type != TypeText {
			break
		}
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text != "" {
			break
		}
		nodes = nodes[:len(nodes)-1]
	}
	return nodes
}

func withMark(marks []Mark, m Mark) []Mark {
	for _, existing := range marks {
		if existing.Type == m.Type {
			return marks
		}
	}
	out := make([]Mark, len(marks), len(marks)+1)
	copy(out, marks)
	return append(out, m)
}

func cloneMarks(marks []Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]Mark, len(marks))
	copy(out, marks)
	return out
}

func isBlockElement(a atom.Atom) bool {
	switch a {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Blockquote, atom.Pre, atom.Hr,
		atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.Main, atom.Aside, atom.Nav, atom.Figure, atom.Table, atom.Tbody,
		atom.Thead, atom.Tr, atom.Td, atom.Th:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
