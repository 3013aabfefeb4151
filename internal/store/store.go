// Package store defines the persistence contract (§6): a spatial relational
// store holding events, duplicate links, intensity curves, the read-only
// country/plate reference layers, and the sync_state singleton.
package store

import (
	"context"
	"time"

	"github.com/seismic-sync/catalog-etl/internal/domain"
)

// Store is the thin contract the pipeline depends on. Point-in-polygon and
// polygon-intersection queries are pushed down to the store (§9 design
// note: "implementers should push this to the store via a spatial index"),
// never resolved with an in-process geometry library.
type Store interface {
	// GetEventByGlobalID returns the event with the given global_id, or
	// (nil, nil) when none exists.
	GetEventByGlobalID(ctx context.Context, globalID string) (*domain.Event, error)

	// CreateEvent inserts a new event row. On a uniqueness conflict on
	// global_id it returns the existing row and ok=false instead of an
	// error (§4.4 step 3, §7 "upsert conflict").
	CreateEvent(ctx context.Context, event *domain.Event) (created *domain.Event, ok bool, err error)

	// UpdateEvent overwrites every field except id, global_id, source,
	// source_id, and duplicate_of (§4.4 step 2).
	UpdateEvent(ctx context.Context, event *domain.Event) error

	// InsertIntensityCurves inserts child curve rows for an event and sets
	// has_curves=true. Only called on the create path (§9 open question 1).
	InsertIntensityCurves(ctx context.Context, eventID int64, curves []domain.IntensityContour) error

	// FindPlateContaining returns the first plate whose geometry contains
	// (lon, lat), or (nil, nil) if none.
	FindPlateContaining(ctx context.Context, lon, lat float64) (*domain.Plate, error)

	// FindCountryContaining returns the first country whose geometry
	// contains (lon, lat), or (nil, nil) if none.
	FindCountryContaining(ctx context.Context, lon, lat float64) (*domain.Country, error)

	// FindCountriesContaining returns the distinct set of countries whose
	// geometry contains at least one of the given points (§4.3 "affected
	// countries from contours").
	FindCountriesContaining(ctx context.Context, points []domain.Point) ([]domain.Country, error)

	// CreateDuplicateLinkIfAbsent creates a DuplicateLink and sets
	// duplicate.duplicate_of = canonical, unless a link for the pair
	// already exists, in which case it returns created=false (§4.5,
	// §7 "link conflict").
	CreateDuplicateLinkIfAbsent(ctx context.Context, link domain.DuplicateLink) (created bool, err error)

	// GetOrCreateSyncState returns the SyncState row for key, creating it
	// with value=false on first access (§3, Supplemented feature 1).
	GetOrCreateSyncState(ctx context.Context, key string) (*domain.SyncState, error)

	// UpdateSyncState persists the row as given.
	UpdateSyncState(ctx context.Context, state *domain.SyncState) error

	// ListCanonicalEventsOrderedByOriginTime returns every event with
	// duplicate_of null and a non-null location, ordered by origin_time
	// ascending (§4.5 sweep input).
	ListCanonicalEventsOrderedByOriginTime(ctx context.Context) ([]domain.Event, error)

	// MaxRetrievedTime returns the largest retrieved_time across every
	// event row, with no filter on duplicate_of or location (§4.6 step 2:
	// the initial-sync lookback start is derived from the most recently
	// retrieved event overall, not just the canonical, located subset
	// the dedup sweep consumes). Returns (nil, nil) when the table is
	// empty.
	MaxRetrievedTime(ctx context.Context) (*time.Time, error)
}
