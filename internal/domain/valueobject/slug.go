package valueobject

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const MaxSlugLength = 64

var slugRegex = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// Slug is the canonical, upper-cased short code of a link.
type Slug struct {
	value string
}

// NewSlug normalizes a raw path segment and validates it.
func NewSlug(raw string) (Slug, error) {
	canonical := strings.ToUpper(strings.TrimSpace(raw))
	if err := validation.Validate(canonical,
		validation.Required.Error("slug is required"),
		validation.Length(1, MaxSlugLength).Error("slug is too long"),
		validation.Match(slugRegex).Error("slug must contain only letters, digits, underscores and hyphens"),
	); err != nil {
		return Slug{}, ErrMalformedInput
	}
	return Slug{value: canonical}, nil
}

// String returns the canonical slug.
func (s Slug) String() string {
	return s.value
}

// IsEmpty returns true if the Slug is empty.
func (s Slug) IsEmpty() bool {
	return s.value == ""
}
