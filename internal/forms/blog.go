package forms

import (
	"encoding/json"
	"net/url"
	"strings"

	"blogdash/internal/models"
	"blogdash/internal/richtext"
	"blogdash/internal/slug"
)

// Blog field limits.
const (
	minBlogTitle   = 3
	maxBlogTitle   = 150
	maxBlogSlug    = 150
	maxBlogDesc    = 500
	maxBlogTags    = 10
	maxBlogContent = 1 << 20
)

// Blog is the create/edit post form. Content holds the editor's document
// JSON. When the browser editor is unavailable the textarea fallback posts
// Markdown instead; it replaces Content and is converted to a document
// during validation.
type Blog struct {
	Title           string
	Slug            string
	Description     string
	Content         string
	ContentMarkdown string
	Thumbnail       string
	Status          string
	CategoryID      string
	TagIDs          []string

	doc *richtext.Node
}

// BlogFromValues reads the post form.
func BlogFromValues(v url.Values) *Blog {
	f := &Blog{
		Title:           value(v, "title"),
		Slug:            value(v, "slug"),
		Description:     value(v, "description"),
		Content:         strings.TrimSpace(v.Get("content")),
		ContentMarkdown: v.Get("content_markdown"),
		Thumbnail:       value(v, "thumbnail"),
		Status:          value(v, "status"),
		CategoryID:      value(v, "category_id"),
	}
	seen := map[string]bool{}
	for _, id := range v["tags"] {
		id = strings.TrimSpace(id)
		if id != "" && !seen[id] {
			seen[id] = true
			f.TagIDs = append(f.TagIDs, id)
		}
	}
	return f
}

// BlogFromModel pre-fills the edit form.
func BlogFromModel(b *models.Blog) *Blog {
	f := &Blog{
		Title:       b.Title,
		Slug:        b.Slug,
		Description: b.Description,
		Content:     string(b.Content),
		Thumbnail:   b.Thumbnail,
		Status:      string(b.Status),
		CategoryID:  b.CategoryID(),
	}
	for _, t := range b.Tags {
		f.TagIDs = append(f.TagIDs, t.ID)
	}
	return f
}

// HasTag reports whether the tag is selected. Used by the form template.
func (f *Blog) HasTag(id string) bool {
	for _, t := range f.TagIDs {
		if t == id {
			return true
		}
	}
	return false
}

// Validate checks the form and normalizes it: an empty slug is derived from
// the title, an empty status becomes draft and Markdown fallback content is
// converted to a document.
func (f *Blog) Validate() Errors {
	errs := Errors{}

	length(errs, "title", "Title", f.Title, minBlogTitle, maxBlogTitle)

	if f.Slug == "" {
		f.Slug = slug.GenerateMax(f.Title, maxBlogSlug)
	}
	checkSlug(errs, f.Slug, maxBlogSlug)

	length(errs, "description", "Description", f.Description, 0, maxBlogDesc)

	f.validateContent(errs)

	if f.Status == "" {
		f.Status = string(models.BlogStatusDraft)
	}
	if !models.BlogStatus(f.Status).Valid() {
		errs.Add("status", "Choose draft or published.")
	}

	if f.CategoryID == "" {
		errs.Add("category_id", "Category is required.")
	}

	if f.Thumbnail != "" && !absoluteHTTPURL(f.Thumbnail) {
		errs.Add("thumbnail", "Thumbnail must be an absolute http or https URL.")
	}

	if len(f.TagIDs) > maxBlogTags {
		errs.Add("tags", "Choose at most 10 tags.")
	}
	return errs
}

func (f *Blog) validateContent(errs Errors) {
	if strings.TrimSpace(f.ContentMarkdown) != "" {
		doc, err := richtext.FromMarkdown(f.ContentMarkdown)
		if err != nil {
			errs.Add("content", "Content could not be converted.")
			return
		}
		raw, err := doc.Marshal()
		if err != nil {
			errs.Add("content", "Content could not be converted.")
			return
		}
		f.Content = string(raw)
		f.ContentMarkdown = ""
	}

	if len(f.Content) > maxBlogContent {
		errs.Add("content", "Content is too large.")
		return
	}
	doc, err := richtext.Parse([]byte(f.Content))
	if err != nil {
		errs.Add("content", "Content is not a valid document.")
		return
	}
	if doc.IsEmpty() {
		errs.Add("content", "Content is required.")
		return
	}
	f.doc = doc
}

// Input converts a validated form into the API payload. The document JSON
// is forwarded untouched unless it was submitted double-encoded.
func (f *Blog) Input() models.BlogInput {
	var content json.RawMessage
	if f.Content != "" {
		content = json.RawMessage(f.Content)
	}
	if f.doc != nil && strings.HasPrefix(f.Content, `"`) {
		if raw, err := f.doc.Marshal(); err == nil {
			content = raw
		}
	}
	tags := f.TagIDs
	if tags == nil {
		tags = []string{}
	}
	return models.BlogInput{
		Title:       f.Title,
		Slug:        f.Slug,
		Description: f.Description,
		Content:     content,
		Thumbnail:   f.Thumbnail,
		Status:      models.BlogStatus(f.Status),
		CategoryID:  f.CategoryID,
		TagIDs:      tags,
	}
}
