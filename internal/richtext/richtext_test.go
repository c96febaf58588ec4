package richtext

import (
	"errors"
	"strings"
	"testing"
)

func text(s string, marks ...Mark) Node {
	return Node{Type: TypeText, Text: s, Marks: marks}
}

func para(content ...Node) Node {
	return Node{Type: TypeParagraph, Content: content}
}

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi"}]}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Content) != 1 || doc.Content[0].Content[0].Text != "hi" {
		t.Errorf("unexpected tree: %+v", doc)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, raw := range []string{"", "  ", "null"} {
		doc, err := Parse([]byte(raw))
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if doc.Type != TypeDoc || !doc.IsEmpty() {
			t.Errorf("Parse(%q) = %+v, want empty doc", raw, doc)
		}
	}
}

func TestParse_DoubleEncoded(t *testing.T) {
	raw := `"{\"type\":\"doc\",\"content\":[{\"type\":\"paragraph\",\"content\":[{\"type\":\"text\",\"text\":\"nested\"}]}]}"`
	doc, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.PlainText() != "nested" {
		t.Errorf("PlainText = %q", doc.PlainText())
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse([]byte(`{not json`)); err == nil {
		t.Error("expected decode error")
	}
	if _, err := Parse([]byte(`{"type":"paragraph"}`)); !errors.Is(err, ErrNotDocument) {
		t.Errorf("err = %v, want ErrNotDocument", err)
	}
}

func TestToHTML_Blocks(t *testing.T) {
	doc := NewDoc(
		Node{Type: TypeHeading, Attrs: map[string]any{"level": float64(2)}, Content: []Node{text("Title")}},
		para(text("Hello "), text("bold", Mark{Type: MarkBold}), text(" and "), text("em", Mark{Type: MarkItalic})),
		Node{Type: TypeBulletList, Content: []Node{
			{Type: TypeListItem, Content: []Node{para(text("one"))}},
			{Type: TypeListItem, Content: []Node{para(text("two"))}},
		}},
		Node{Type: TypeOrderedList, Attrs: map[string]any{"start": float64(3)}, Content: []Node{
			{Type: TypeListItem, Content: []Node{para(text("three"))}},
		}},
		Node{Type: TypeBlockquote, Content: []Node{para(text("quoted"))}},
		Node{Type: TypeCodeBlock, Attrs: map[string]any{"language": "go"}, Content: []Node{text("if a < b {}")}},
		Node{Type: TypeHorizontalRule},
	)

	got := ToHTML(doc)
	for _, want := range []string{
		"<h2>Title</h2>",
		"<p>Hello <strong>bold</strong> and <em>em</em></p>",
		"<ul><li><p>one</p></li><li><p>two</p></li></ul>",
		`<ol start="3"><li><p>three</p></li></ol>`,
		"<blockquote><p>quoted</p></blockquote>",
		`<pre><code class="language-go">if a &lt; b {}</code></pre>`,
		"<hr",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestToHTML_Marks(t *testing.T) {
	doc := NewDoc(para(
		text("u", Mark{Type: MarkUnderline}),
		text("s", Mark{Type: MarkStrike}),
		text("c", Mark{Type: MarkCode}),
		text("both", Mark{Type: MarkBold}, Mark{Type: MarkItalic}),
		text("?", Mark{Type: "sparkle"}),
	))
	got := ToHTML(doc)
	for _, want := range []string{"<u>u</u>", "<s>s</s>", "<code>c</code>", "<strong><em>both</em></strong>", "?"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestToHTML_Links(t *testing.T) {
	doc := NewDoc(para(
		text("go", Mark{Type: MarkLink, Attrs: map[string]any{"href": "https://go.dev"}}),
		text("bad", Mark{Type: MarkLink, Attrs: map[string]any{"href": "javascript:alert(1)"}}),
	))
	got := ToHTML(doc)
	if !strings.Contains(got, `href="https://go.dev"`) {
		t.Errorf("safe link dropped: %s", got)
	}
	if !strings.Contains(got, "nofollow") {
		t.Errorf("external link without rel=nofollow: %s", got)
	}
	if strings.Contains(got, "javascript:") {
		t.Errorf("javascript link survived: %s", got)
	}
	if !strings.Contains(got, "bad") {
		t.Errorf("link text lost: %s", got)
	}
}

func TestToHTML_EscapesText(t *testing.T) {
	got := ToHTML(NewDoc(para(text(`<script>alert("x")</script>`))))
	if strings.Contains(got, "<script>") {
		t.Fatalf("script tag rendered: %s", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("text not escaped: %s", got)
	}
}

func TestToHTML_HeadingLevelClamped(t *testing.T) {
	doc := NewDoc(
		Node{Type: TypeHeading, Attrs: map[string]any{"level": float64(9)}, Content: []Node{text("deep")}},
		Node{Type: TypeHeading, Content: []Node{text("none")}},
	)
	got := ToHTML(doc)
	if !strings.Contains(got, "<h6>deep</h6>") {
		t.Errorf("level 9 not clamped: %s", got)
	}
	if !strings.Contains(got, "<h1>none</h1>") {
		t.Errorf("missing level not defaulted: %s", got)
	}
}

func TestToHTML_UnknownNodeRendersChildren(t *testing.T) {
	doc := NewDoc(Node{Type: "callout", Content: []Node{para(text("inside"))}})
	if got := ToHTML(doc); got != "<p>inside</p>" {
		t.Errorf("ToHTML = %q", got)
	}
}

func TestToHTML_Image(t *testing.T) {
	doc := NewDoc(
		Node{Type: TypeImage, Attrs: map[string]any{"src": "https://cdn.example.com/a.png", "alt": "A"}},
		Node{Type: TypeImage},
	)
	got := ToHTML(doc)
	if !strings.Contains(got, `src="https://cdn.example.com/a.png"`) || !strings.Contains(got, `alt="A"`) {
		t.Errorf("image not rendered: %s", got)
	}
	if strings.Count(got, "<img") != 1 {
		t.Errorf("image without src rendered: %s", got)
	}
}

func TestToHTML_Nil(t *testing.T) {
	if got := ToHTML(nil); got != "" {
		t.Errorf("ToHTML(nil) = %q", got)
	}
}

func TestRenderJSON(t *testing.T) {
	got, err := RenderJSON([]byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi","marks":[{"type":"bold"}]}]}]}`))
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	if got != "<p><strong>hi</strong></p>" {
		t.Errorf("RenderJSON = %q", got)
	}

	if _, err := RenderJSON([]byte(`[1,2]`)); err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		doc  *Node
		want bool
	}{
		{"nil", nil, true},
		{"no content", NewDoc(), true},
		{"empty paragraph", NewDoc(para()), true},
		{"whitespace", NewDoc(para(text("  \n "))), true},
		{"text", NewDoc(para(text("x"))), false},
		{"image", NewDoc(Node{Type: TypeImage, Attrs: map[string]any{"src": "/a.png"}}), false},
		{"rule", NewDoc(Node{Type: TypeHorizontalRule}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlainTextAndExcerpt(t *testing.T) {
	doc := NewDoc(
		Node{Type: TypeHeading, Content: []Node{text("Title")}},
		para(text("Hello "), text("world", Mark{Type: MarkBold})),
	)
	if got := doc.PlainText(); got != "Title\nHello world" {
		t.Errorf("PlainText = %q", got)
	}
	if got := doc.Excerpt(100); got != "Title Hello world" {
		t.Errorf("Excerpt(100) = %q", got)
	}
	if got := doc.Excerpt(13); got != "Title Hello…" {
		t.Errorf("Excerpt(13) = %q", got)
	}
}

func TestFromHTML(t *testing.T) {
	doc, err := FromHTML(`<h2>Title</h2><p>Hello <strong>bold</strong> <a href="https://go.dev">link</a></p><script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if len(doc.Content) != 2 {
		t.Fatalf("blocks = %d, want 2: %+v", len(doc.Content), doc.Content)
	}

	h := doc.Content[0]
	if h.Type != TypeHeading || h.attrInt("level", 0) != 2 || h.PlainText() != "Title" {
		t.Errorf("heading = %+v", h)
	}

	p := doc.Content[1]
	if p.Type != TypeParagraph {
		t.Fatalf("second block = %q", p.Type)
	}
	var sawBold, sawLink bool
	for _, n := range p.Content {
		for _, m := range n.Marks {
			if m.Type == MarkBold && n.Text == "bold" {
				sawBold = true
			}
			if m.Type == MarkLink && stringAttr(m.Attrs, "href") == "https://go.dev" {
				sawLink = true
			}
		}
	}
	if !sawBold || !sawLink {
		t.Errorf("marks lost: %+v", p.Content)
	}
	if strings.Contains(doc.PlainText(), "alert") {
		t.Error("script content imported")
	}
}

func TestFromHTML_WrapsStrayInline(t *testing.T) {
	doc, err := FromHTML(`loose <em>text</em><div>in div<p>para</p></div>`)
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	var types []string
	for _, n := range doc.Content {
		types = append(types, n.Type)
	}
	if got := strings.Join(types, ","); got != "paragraph,paragraph,paragraph" {
		t.Errorf("blocks = %s", got)
	}
	if got := doc.PlainText(); got != "loose text\nin div\npara" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestFromHTML_ListsAndCode(t *testing.T) {
	doc, err := FromHTML(`<ol start="4"><li>a</li><li><p>b</p></li></ol><pre><code class="language-go">x := 1
</code></pre>`)
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if len(doc.Content) != 2 {
		t.Fatalf("blocks = %+v", doc.Content)
	}
	list := doc.Content[0]
	if list.Type != TypeOrderedList || list.attrInt("start", 1) != 4 || len(list.Content) != 2 {
		t.Errorf("list = %+v", list)
	}
	code := doc.Content[1]
	if code.attrString("language") != "go" || rawText(&code) != "x := 1" {
		t.Errorf("code = %+v", code)
	}
}

func TestFromMarkdown(t *testing.T) {
	doc, err := FromMarkdown("# Hi\n\nSome *text* and ~~gone~~.\n\n- one\n- two\n")
	if err != nil {
		t.Fatalf("FromMarkdown: %v", err)
	}
	html := ToHTML(doc)
	for _, want := range []string{"<h1>Hi</h1>", "<em>text</em>", "<s>gone</s>", "<ul><li><p>one</p></li>"} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q\n%s", want, html)
		}
	}
}
