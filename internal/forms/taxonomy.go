package forms

import (
	"net/url"

	"blogdash/internal/models"
	"blogdash/internal/slug"
)

const (
	minCategoryName = 2
	maxCategoryName = 50
	maxCategorySlug = 60
	maxCategoryDesc = 255

	minTagName = 2
	maxTagName = 30
	maxTagSlug = 40
)

// Category is the create/edit category form.
type Category struct {
	Name        string
	Slug        string
	Description string
}

// CategoryFromValues reads the category form.
func CategoryFromValues(v url.Values) *Category {
	return &Category{
		Name:        value(v, "name"),
		Slug:        value(v, "slug"),
		Description: value(v, "description"),
	}
}

// CategoryFromModel pre-fills the edit form.
func CategoryFromModel(c *models.Category) *Category {
	return &Category{Name: c.Name, Slug: c.Slug, Description: c.Description}
}

// Validate checks the form, deriving an empty slug from the name.
func (f *Category) Validate() Errors {
	errs := Errors{}
	length(errs, "name", "Name", f.Name, minCategoryName, maxCategoryName)
	if f.Slug == "" {
		f.Slug = slug.GenerateMax(f.Name, maxCategorySlug)
	}
	checkSlug(errs, f.Slug, maxCategorySlug)
	length(errs, "description", "Description", f.Description, 0, maxCategoryDesc)
	return errs
}

// Input returns the API payload.
func (f *Category) Input() models.CategoryInput {
	return models.CategoryInput{Name: f.Name, Slug: f.Slug, Description: f.Description}
}

// Tag is the create/edit tag form.
type Tag struct {
	Name string
	Slug string
}

// TagFromValues reads the tag form.
func TagFromValues(v url.Values) *Tag {
	return &Tag{Name: value(v, "name"), Slug: value(v, "slug")}
}

// TagFromModel pre-fills the edit form.
func TagFromModel(t *models.Tag) *Tag {
	return &Tag{Name: t.Name, Slug: t.Slug}
}

// Validate checks the form, deriving an empty slug from the name.
func (f *Tag) Validate() Errors {
	errs := Errors{}
	length(errs, "name", "Name", f.Name, minTagName, maxTagName)
	if f.Slug == "" {
		f.Slug = slug.GenerateMax(f.Name, maxTagSlug)
	}
	checkSlug(errs, f.Slug, maxTagSlug)
	return errs
}

// Input returns the API payload.
func (f *Tag) Input() models.TagInput {
	return models.TagInput{Name: f.Name, Slug: f.Slug}
}
