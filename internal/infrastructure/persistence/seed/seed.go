// Package seed loads the brand's properties and photo albums into an
// empty catalog.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/domain/catalog"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

// HomeAlbum is the slug of the landing page gallery
const HomeAlbum = "home"

var properties = []catalog.PropertyFields{
	{
		Slug:        "burguret-mountainside-villa",
		Kind:        catalog.KindMountainVilla,
		Name:        "Burguret Mountainside Villa",
		Location:    "Burguret, Kenya",
		Description: "The Burguret Mountainside Villa is a 3-bedroom luxurious bungalow seated on 2.2 acres of African Bush Land filled with 'Leleshwa' Cedar trees. It is a seamless fusion of old British architectural style and Kenyan Lamu coastal designs with most of its furniture handmade from the Coast using Oak tree 'Mvule'.",
		CoverImage:  "/assets/Burguret Mountainside Villa/Burguret. House Overall View.jpg",
	},
	{
		Slug:        "narumoru-mountainside-villa",
		Kind:        catalog.KindMountainVilla,
		Name:        "Narumoru Mountainside Villa",
		Location:    "Narumoru, Kenya",
		Description: "The Narumoru Mountainside Villa is one of the most beautiful homes in the area with unique handmade designs and is set on an extraordinary 8-acre piece of forest with over a half kilometer river frontage.",
		CoverImage:  "/assets/Burguret Mountainside Villa/Burguret. Living room 1.jpg",
	},
	{
		Slug:        "laurel-hill-suites",
		Kind:        catalog.KindApartment,
		Name:        "Laurel Hill Suites",
		Location:    "Nairobi, Kenya",
		Description: "One bedroom suite with city views, a rooftop pool and gym access.",
		CoverImage:  "/assets/Premium%20Locations/L6%20Reception.jpg",
	},
	{
		Slug:        "alba-gardens",
		Kind:        catalog.KindApartment,
		Name:        "Alba Gardens",
		Location:    "Nairobi, Kenya",
		Description: "Two bedroom apartment with a garden terrace, double parking and a smart home system.",
		CoverImage:  "/assets/Premium%20Locations/A17%20Reception.jpg",
	},
	{
		Slug:        "weekend-safari",
		Kind:        catalog.KindSafari,
		Name:        "Weekend Safari",
		Location:    "Aberdare Park, Ol Pejeta, Solio Ranch",
		Description: "A quick but intense immersion into the wild, perfect for spotting Rhinos and elusive forest dwellers.",
		CoverImage:  "/assets/Curated%20Itineraries%20Images/unnamed%20(10).png",
	},
	{
		Slug:        "best-of-mt-kenya",
		Kind:        catalog.KindSafari,
		Name:        "Best of Mt Kenya",
		Location:    "Mt. Kenya Slopes, Samburu Reserve",
		Description: "Experience the drastic change in landscapes from lush forests to semi-arid beauty.",
		CoverImage:  "/assets/Curated%20Itineraries%20Images/unnamed%20(11).png",
	},
	{
		Slug:        "mt-kenya-circuit",
		Kind:        catalog.KindSafari,
		Name:        "Mt Kenya Circuit",
		Location:    "Lake Baringo, Narumoru, Meru National Park",
		Description: "The ultimate expedition covering rift valley lakes, highland forests, and remote wilderness.",
		CoverImage:  "/assets/Curated%20Itineraries%20Images/unnamed%20(12).png",
	},
}

type albumSeed struct {
	slug         string
	title        string
	propertySlug string
	images       []string
}

var albums = []albumSeed{
	{HomeAlbum, "New Manyatta Kenya", "", homeImages},
	{"burguret-mountainside-villa", "Burguret Mountainside Villa", "burguret-mountainside-villa", burguretImages},
	{"narumoru-mountainside-villa", "Narumoru Mountainside Villa", "narumoru-mountainside-villa", narumoruImages},
	{"laurel-hill-suites", "Laurel Hill Suites", "laurel-hill-suites", laurelImages},
	{"alba-gardens", "Alba Gardens", "alba-gardens", albaImages},
}

// Properties builds the seed properties
func Properties() ([]*catalog.Property, error) {
	out := make([]*catalog.Property, 0, len(properties))
	for _, f := range properties {
		p, err := catalog.NewProperty(f)
		if err != nil {
			return nil, fmt.Errorf("seed property %s: %w", f.Slug, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Albums builds the seed albums in listing order
func Albums() ([]*catalog.Album, error) {
	out := make([]*catalog.Album, 0, len(albums))
	for _, s := range albums {
		images := make([]catalog.AlbumImage, len(s.images))
		for i, src := range s.images {
			images[i] = catalog.AlbumImage{Src: src, SortOrder: i}
		}
		a, err := catalog.NewAlbum(s.slug, s.title, s.propertySlug, images)
		if err != nil {
			return nil, fmt.Errorf("seed album %s: %w", s.slug, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Catalog writes the seed data when repo holds no albums yet
func Catalog(ctx context.Context, repo outbound.CatalogRepository, logger *zap.Logger) error {
	count, err := repo.CountAlbums(ctx)
	if err != nil {
		return fmt.Errorf("count albums: %w", err)
	}
	if count > 0 {
		logger.Debug("Catalog already seeded", zap.Int64("albums", count))
		return nil
	}

	props, err := Properties()
	if err != nil {
		return err
	}
	for _, p := range props {
		if err := repo.SaveProperty(ctx, p); err != nil {
			return err
		}
	}

	seeded, err := Albums()
	if err != nil {
		return err
	}
	for _, a := range seeded {
		if err := repo.SaveAlbum(ctx, a); err != nil {
			return fmt.Errorf("save album %s: %w", a.Slug(), err)
		}
	}

	logger.Info("Catalog seeded",
		zap.Int("properties", len(props)),
		zap.Int("albums", len(seeded)),
	)
	return nil
}
