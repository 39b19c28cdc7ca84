package catalog

import (
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AlbumImage is one photograph in an album
type AlbumImage struct {
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	SortOrder int    `json:"sort_order"`
}

// Album is an ordered set of photographs, optionally tied to a property
type Album struct {
	id           uuid.UUID
	slug         string
	title        string
	propertySlug string
	images       []AlbumImage
	createdAt    time.Time
}

// NewAlbum orders images by SortOrder (stable for ties) and fills in alt
// text derived from the file name where it is missing.
func NewAlbum(slug, title, propertySlug string, images []AlbumImage) (*Album, error) {
	return RestoreAlbum(uuid.New(), slug, title, propertySlug, images, time.Now())
}

// RestoreAlbum rebuilds a persisted album
func RestoreAlbum(id uuid.UUID, slug, title, propertySlug string, images []AlbumImage, createdAt time.Time) (*Album, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrNameRequired
	}
	if len(images) == 0 {
		return nil, ErrEmptyAlbum
	}

	ordered := make([]AlbumImage, len(images))
	copy(ordered, images)
	for i := range ordered {
		if strings.TrimSpace(ordered[i].Src) == "" {
			return nil, ErrImageSrcMissing
		}
		if ordered[i].Alt == "" {
			ordered[i].Alt = AltFromPath(ordered[i].Src)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortOrder < ordered[j].SortOrder
	})

	return &Album{
		id:           id,
		slug:         slug,
		title:        strings.TrimSpace(title),
		propertySlug: propertySlug,
		images:       ordered,
		createdAt:    createdAt,
	}, nil
}

func (a *Album) ID() uuid.UUID        { return a.id }
func (a *Album) Slug() string         { return a.slug }
func (a *Album) Title() string        { return a.title }
func (a *Album) PropertySlug() string { return a.propertySlug }
func (a *Album) CreatedAt() time.Time { return a.createdAt }
func (a *Album) Len() int             { return len(a.images) }

// Images returns a copy of the ordered images
func (a *Album) Images() []AlbumImage {
	out := make([]AlbumImage, len(a.images))
	copy(out, a.images)
	return out
}

// Cover is the first image in order
func (a *Album) Cover() AlbumImage {
	return a.images[0]
}

// AltFromPath turns "/assets/Laurel Hill Suites/L6 Gym (b).jpg" into
// "L6 Gym (b)".
func AltFromPath(src string) string {
	base := path.Base(src)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.ReplaceAll(base, "%20", " ")
	return strings.Join(strings.Fields(base), " ")
}
