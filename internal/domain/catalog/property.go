// Package catalog holds the brand's properties and the photo albums that
// feed the slideshow.
package catalog

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Kind is the line of business a property belongs to
type Kind string

const (
	KindMountainVilla Kind = "mountain_villa"
	KindSafari        Kind = "safari"
	KindApartment     Kind = "apartment"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindMountainVilla, KindSafari, KindApartment:
		return true
	}
	return false
}

// Property is a bookable villa, safari or apartment
type Property struct {
	id          uuid.UUID
	slug        string
	kind        Kind
	name        string
	location    string
	description string
	coverImage  string
	createdAt   time.Time
	updatedAt   time.Time
}

// PropertyFields carries the attributes of a property
type PropertyFields struct {
	Slug        string
	Kind        Kind
	Name        string
	Location    string
	Description string
	CoverImage  string
}

// NewProperty validates fields and assigns a new identity
func NewProperty(f PropertyFields) (*Property, error) {
	now := time.Now()
	return RestoreProperty(uuid.New(), f, now, now)
}

// RestoreProperty rebuilds a persisted property
func RestoreProperty(id uuid.UUID, f PropertyFields, createdAt, updatedAt time.Time) (*Property, error) {
	if err := ValidateSlug(f.Slug); err != nil {
		return nil, err
	}
	if !f.Kind.Valid() {
		return nil, ErrUnknownKind
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	return &Property{
		id:          id,
		slug:        f.Slug,
		kind:        f.Kind,
		name:        name,
		location:    strings.TrimSpace(f.Location),
		description: strings.TrimSpace(f.Description),
		coverImage:  f.CoverImage,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

func (p *Property) ID() uuid.UUID        { return p.id }
func (p *Property) Slug() string         { return p.slug }
func (p *Property) Kind() Kind           { return p.kind }
func (p *Property) Name() string         { return p.name }
func (p *Property) Location() string     { return p.location }
func (p *Property) Description() string  { return p.description }
func (p *Property) CoverImage() string   { return p.coverImage }
func (p *Property) CreatedAt() time.Time { return p.createdAt }
func (p *Property) UpdatedAt() time.Time { return p.updatedAt }

// ValidateSlug checks the URL-safe identifier format
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}
