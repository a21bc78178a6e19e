// Package figure provides models and repository for the public figures
// whose name pronunciations the community documents.
package figure

import (
	"regexp"
	"strings"
	"time"
)

// Figure represents a public figure page. Examples reference a figure by ID.
type Figure struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	ImageKey    *string `json:"image_key,omitempty"`

	// CreatedBy is nullable: the creating account may have been deleted.
	CreatedBy *string `json:"created_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the denormalized figure shape embedded in listing results.
type Summary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	ImageKey *string `json:"image_key,omitempty"`
}

// Summary returns the embeddable summary for a figure.
func (f *Figure) Summary() Summary {
	return Summary{
		ID:       f.ID,
		Name:     f.Name,
		Slug:     f.Slug,
		ImageKey: f.ImageKey,
	}
}

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugHyphenRuns   = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a display name into a URL-safe slug: lowercase,
// alphanumeric runs joined by single hyphens, no leading or trailing
// hyphen. Anything else (punctuation, script characters outside a-z0-9)
// collapses into the separators, which also strips HTML and injection
// attempts from hostile names.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	slug = slugHyphenRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Maximum field lengths enforced before hitting the store.
const (
	MaxNameLength        = 200
	MaxDescriptionLength = 2000
)

// Validate checks the figure's writable fields. Returns a user-safe
// message when invalid, empty string when valid.
func (f *Figure) Validate() string {
	if strings.TrimSpace(f.Name) == "" {
		return "name is required"
	}
	if len(f.Name) > MaxNameLength {
		return "name is too long"
	}
	if strings.TrimSpace(f.Description) == "" {
		return "description is required"
	}
	if len(f.Description) > MaxDescriptionLength {
		return "description is too long"
	}
	if f.Slug == "" {
		return "name must contain at least one letter or digit"
	}
	return ""
}
