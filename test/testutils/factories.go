// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/newmanyatta/manyatta/internal/domain/catalog"
	"github.com/newmanyatta/manyatta/internal/domain/gallery"
	"github.com/newmanyatta/manyatta/internal/ports/inbound"
)

var kinds = []catalog.Kind{catalog.KindMountainVilla, catalog.KindSafari, catalog.KindApartment}

// CatalogFactory creates properties, albums and slides from a seeded faker
// so failures reproduce.
type CatalogFactory struct {
	faker *gofakeit.Faker
	seq   int
}

// NewCatalogFactory creates a new catalog factory with seeded faker
func NewCatalogFactory(seed int64) *CatalogFactory {
	return &CatalogFactory{faker: gofakeit.New(seed)}
}

// slug returns a unique, valid slug built from words
func (f *CatalogFactory) slug(words ...string) string {
	f.seq++
	parts := make([]string, 0, len(words)+1)
	for _, w := range words {
		w = strings.ToLower(strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, w))
		if w != "" {
			parts = append(parts, w)
		}
	}
	parts = append(parts, fmt.Sprint(f.seq))
	return strings.Join(parts, "-")
}

// ImagePath returns a site path under /assets
func (f *CatalogFactory) ImagePath(dir string) string {
	return fmt.Sprintf("/assets/%s/%d.%s", dir, f.faker.Number(1, 40), f.faker.RandomString([]string{"jpg", "png", "webp"}))
}

// Property builds a valid property of a random kind
func (f *CatalogFactory) Property() (*catalog.Property, error) {
	name := f.faker.City() + " " + f.faker.RandomString([]string{"Villa", "Lodge", "Suites", "Camp"})
	slug := f.slug(name)
	return catalog.NewProperty(catalog.PropertyFields{
		Slug:        slug,
		Kind:        kinds[f.faker.Number(0, len(kinds)-1)],
		Name:        name,
		Location:    f.faker.City() + ", Kenya",
		Description: f.faker.Sentence(12),
		CoverImage:  f.ImagePath(slug),
	})
}

// AlbumImages builds n images with ascending sort order
func (f *CatalogFactory) AlbumImages(dir string, n int) []catalog.AlbumImage {
	images := make([]catalog.AlbumImage, n)
	for i := range images {
		images[i] = catalog.AlbumImage{
			Src:       fmt.Sprintf("/assets/%s/%d.jpg", dir, i+1),
			Alt:       f.faker.Sentence(4),
			SortOrder: i,
		}
	}
	return images
}

// Album builds a valid album with n images, optionally tied to a property
func (f *CatalogFactory) Album(propertySlug string, n int) (*catalog.Album, error) {
	title := f.faker.Adjective() + " " + f.faker.Noun()
	slug := f.slug(title)
	return catalog.NewAlbum(slug, title, propertySlug, f.AlbumImages(slug, n))
}

// Slides builds n gallery images
func (f *CatalogFactory) Slides(n int) []gallery.Image {
	slides := make([]gallery.Image, n)
	for i := range slides {
		slides[i] = gallery.Image{
			Src: fmt.Sprintf("/assets/gallery/%d.jpg", i+1),
			Alt: f.faker.Sentence(3),
		}
	}
	return slides
}

// VitalsFactory creates browser samples
type VitalsFactory struct {
	faker *gofakeit.Faker
}

// NewVitalsFactory creates a new vitals factory with seeded faker
func NewVitalsFactory(seed int64) *VitalsFactory {
	return &VitalsFactory{faker: gofakeit.New(seed)}
}

// Command builds a sample for metric with a plausible value
func (f *VitalsFactory) Command(metric string) inbound.RecordVitalCommand {
	var value float64
	switch strings.ToUpper(metric) {
	case "CLS":
		value = f.faker.Float64Range(0, 0.4)
	case "FID", "INP":
		value = f.faker.Float64Range(10, 600)
	default:
		value = f.faker.Float64Range(100, 5000)
	}
	return inbound.RecordVitalCommand{
		Name:           metric,
		Value:          value,
		NavigationType: f.faker.RandomString([]string{"navigate", "reload", "back-forward"}),
		URL:            f.faker.URL(),
	}
}

// Commands builds one sample per core metric
func (f *VitalsFactory) Commands() []inbound.RecordVitalCommand {
	names := []string{"LCP", "FID", "INP", "CLS", "TTFB"}
	cmds := make([]inbound.RecordVitalCommand, len(names))
	for i, n := range names {
		cmds[i] = f.Command(n)
	}
	return cmds
}
