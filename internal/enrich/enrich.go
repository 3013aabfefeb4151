// Package enrich resolves the geospatial context of a normalized event:
// tectonic plate, origin country, and — for events carrying a shakemap —
// the countries affected by its intensity contours (§4.3).
package enrich

import (
	"context"
	"log/slog"

	"github.com/seismic-sync/catalog-etl/internal/domain"
	"github.com/seismic-sync/catalog-etl/internal/observability"
	"github.com/seismic-sync/catalog-etl/internal/store"
)

// ContourFetcher fetches the MMI intensity contours for a USGS event. See
// [Fetcher] in contours.go for the production implementation.
type ContourFetcher interface {
	FetchContours(ctx context.Context, sourceID string) ([]domain.IntensityContour, error)
}

// Enricher resolves plate, country, and affected-country fields for a
// normalized event.
type Enricher struct {
	store    store.Store
	contours ContourFetcher
	logger   *slog.Logger
}

// New creates an Enricher backed by spatial lookups against store and
// contour fetches via fetcher.
func New(s store.Store, fetcher ContourFetcher, logger *slog.Logger) *Enricher {
	return &Enricher{store: s, contours: fetcher, logger: logger}
}

// Result carries the fields the enricher is responsible for.
type Result struct {
	TectonicPlate     *string
	OriginCountry     *string
	AffectedCountries []string
	Curves            []domain.IntensityContour
}

// Enrich resolves every field independently; a failure in one spatial
// lookup or the contour fetch degrades that field to its zero value and
// never aborts enrichment of the others (§4.3, §7 "enrichment lookup").
func (e *Enricher) Enrich(ctx context.Context, raw domain.RawEvent) Result {
	var result Result

	if raw.Longitude != nil && raw.Latitude != nil {
		if plate, err := e.store.FindPlateContaining(ctx, *raw.Longitude, *raw.Latitude); err != nil {
			observability.Warn(e.logger, "tectonic plate lookup failed", "source_id", raw.SourceID, "error", err)
		} else if plate != nil {
			name := plate.Name()
			result.TectonicPlate = &name
		}

		if country, err := e.store.FindCountryContaining(ctx, *raw.Longitude, *raw.Latitude); err != nil {
			observability.Warn(e.logger, "origin country lookup failed", "source_id", raw.SourceID, "error", err)
		} else if country != nil {
			name := country.Name()
			result.OriginCountry = &name
		}
	}

	hasShakemap := raw.HasShakemap != nil && *raw.HasShakemap
	if !hasShakemap || raw.SourceID == "" {
		return result
	}

	curves, err := e.contours.FetchContours(ctx, raw.SourceID)
	if err != nil {
		observability.Warn(e.logger, "contour fetch failed", "source_id", raw.SourceID, "error", err)
		return result
	}
	result.Curves = curves

	points := vertices(curves)
	if len(points) == 0 {
		return result
	}

	countries, err := e.store.FindCountriesContaining(ctx, points)
	if err != nil {
		observability.Warn(e.logger, "affected countries lookup failed", "source_id", raw.SourceID, "error", err)
		return result
	}
	result.AffectedCountries = distinctNames(countries)

	return result
}

// vertices flattens every (lon, lat) pair across all contour polygons
// (§4.3 "for every vertex across all contour polygons").
func vertices(curves []domain.IntensityContour) []domain.Point {
	var points []domain.Point
	for _, c := range curves {
		points = append(points, parseCoordinateVertices(c.Coordinates)...)
	}
	return points
}

func distinctNames(countries []domain.Country) []string {
	seen := make(map[string]struct{}, len(countries))
	names := make([]string, 0, len(countries))
	for _, c := range countries {
		name := c.Name()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
