// Package richtext handles the structured documents produced by the post
// editor. A document is a JSON tree of typed nodes (doc, paragraph,
// heading, lists, code blocks, images, text with marks). Documents are
// stored and forwarded to the API as-is; this package converts them to
// sanitized HTML for read views and builds them from HTML or Markdown when
// the browser editor is unavailable.
package richtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Node types.
const (
	TypeDoc            = "doc"
	TypeParagraph      = "paragraph"
	TypeHeading        = "heading"
	TypeBulletList     = "bulletList"
	TypeOrderedList    = "orderedList"
	TypeListItem       = "listItem"
	TypeBlockquote     = "blockquote"
	TypeCodeBlock      = "codeBlock"
	TypeHorizontalRule = "horizontalRule"
	TypeHardBreak      = "hardBreak"
	TypeImage          = "image"
	TypeText           = "text"
)

// Mark types.
const (
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkUnderline = "underline"
	MarkStrike    = "strike"
	MarkCode      = "code"
	MarkLink      = "link"
)

// ErrNotDocument is returned when JSON parses but is not a document tree.
var ErrNotDocument = errors.New("richtext: not a document")

// Node is one element of a document tree.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// Mark is inline formatting applied to a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// NewDoc returns an empty document.
func NewDoc(content ...Node) *Node {
	return &Node{Type: TypeDoc, Content: content}
}

// Parse decodes a document. Empty input yields an empty document. Some
// clients send the document double-encoded as a JSON string; that form is
// accepted too.
func Parse(raw []byte) (*Node, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return NewDoc(), nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("richtext: decode: %w", err)
		}
		return Parse([]byte(inner))
	}

	var doc Node
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("richtext: decode: %w", err)
	}
	if doc.Type != TypeDoc {
		return nil, ErrNotDocument
	}
	return &doc, nil
}

// Marshal encodes the document for the API.
func (n *Node) Marshal() (json.RawMessage, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("richtext: encode: %w", err)
	}
	return b, nil
}

// IsEmpty reports whether the document has no visible content: no text
// other than whitespace and no images or rules.
func (n *Node) IsEmpty() bool {
	if n == nil {
		return true
	}
	switch n.Type {
	case TypeText:
		return strings.TrimSpace(n.Text) == ""
	case TypeImage, TypeHorizontalRule:
		return false
	}
	for i := range n.Content {
		if !n.Content[i].IsEmpty() {
			return false
		}
	}
	return true
}

// PlainText returns the document's text with blocks separated by newlines.
func (n *Node) PlainText() string {
	var b strings.Builder
	n.writeText(&b)
	return strings.TrimSpace(b.String())
}

func (n *Node) writeText(b *strings.Builder) {
	if n == nil {
		return
	}
	switch n.Type {
	case TypeText:
		b.WriteString(n.Text)
		return
	case TypeHardBreak:
		b.WriteByte('\n')
		return
	}
	for i := range n.Content {
		n.Content[i].writeText(b)
	}
	if isBlockType(n.Type) && n.Type != TypeDoc {
		b.WriteByte('\n')
	}
}

// Excerpt returns up to max runes of plain text on one line, cut at a word
// boundary and suffixed with an ellipsis when shortened.
func (n *Node) Excerpt(max int) string {
	text := strings.Join(strings.Fields(n.PlainText()), " ")
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	cut := string(r[:max])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

// attrString returns a string attribute or "".
func (n *Node) attrString(key string) string {
	return stringAttr(n.Attrs, key)
}

// attrInt returns a numeric attribute or def. JSON numbers decode as
// float64; strings holding digits are accepted too.
func (n *Node) attrInt(key string, def int) int {
	switch v := n.Attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return def
}

func stringAttr(attrs map[string]any, key string) string {
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return ""
}

func isBlockType(t string) bool {
	switch t {
	case TypeDoc, TypeParagraph, TypeHeading, TypeBulletList, TypeOrderedList,
		TypeListItem, TypeBlockquote, TypeCodeBlock, TypeHorizontalRule, TypeImage:
		return true
	}
	return false
}
