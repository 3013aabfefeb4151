// Package pipeline implements the Upsert Engine (§4.4), the Deduplication
// Engine (§4.5), and the Orchestrator (§4.6) that drives one sync cycle.
package pipeline

import (
	"context"
	"log/slog"
	"math"

	"github.com/seismic-sync/catalog-etl/internal/domain"
	"github.com/seismic-sync/catalog-etl/internal/enrich"
	"github.com/seismic-sync/catalog-etl/internal/observability"
	"github.com/seismic-sync/catalog-etl/internal/store"
)

// UpsertEngine implements the idempotent create-or-update of events keyed
// by global_id (§4.4).
type UpsertEngine struct {
	store    store.Store
	enricher *enrich.Enricher
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewUpsertEngine creates an UpsertEngine.
func NewUpsertEngine(s store.Store, enricher *enrich.Enricher, metrics *observability.Metrics, logger *slog.Logger) *UpsertEngine {
	return &UpsertEngine{store: s, enricher: enricher, metrics: metrics, logger: logger}
}

// Upsert processes one collapsed RawEvent and returns the resulting row and
// status (§4.4).
func (u *UpsertEngine) Upsert(ctx context.Context, raw domain.RawEvent) (*domain.Event, domain.UpsertStatus, error) {
	existing, err := u.store.GetEventByGlobalID(ctx, raw.GlobalID)
	if err != nil {
		u.metrics.UpsertOutcomes.WithLabelValues(string(domain.StatusError)).Inc()
		return nil, domain.StatusError, err
	}

	if existing != nil {
		return u.updateExisting(ctx, existing, raw)
	}
	return u.createNew(ctx, raw)
}

func (u *UpsertEngine) updateExisting(ctx context.Context, existing *domain.Event, raw domain.RawEvent) (*domain.Event, domain.UpsertStatus, error) {
	if raw.UpdatedTimeUTC == nil {
		return u.unchanged(existing)
	}
	if existing.UpdatedTime != nil && !raw.UpdatedTimeUTC.After(*existing.UpdatedTime) {
		return u.unchanged(existing)
	}

	result := u.enricher.Enrich(ctx, raw)
	updated := applyRawFields(*existing, raw, result, true)
	updated.ID = existing.ID
	updated.GlobalID = existing.GlobalID
	updated.Source = existing.Source
	updated.SourceID = existing.SourceID

	if err := u.store.UpdateEvent(ctx, &updated); err != nil {
		u.metrics.UpsertOutcomes.WithLabelValues(string(domain.StatusError)).Inc()
		return nil, domain.StatusError, err
	}
	u.metrics.UpsertOutcomes.WithLabelValues(string(domain.StatusUpdated)).Inc()
	return &updated, domain.StatusUpdated, nil
}

func (u *UpsertEngine) createNew(ctx context.Context, raw domain.RawEvent) (*domain.Event, domain.UpsertStatus, error) {
	result := u.enricher.Enrich(ctx, raw)
	candidate := applyRawFields(domain.Event{}, raw, result, false)

	created, ok, err := u.store.CreateEvent(ctx, &candidate)
	if err != nil {
		u.metrics.UpsertOutcomes.WithLabelValues(string(domain.StatusError)).Inc()
		return nil, domain.StatusError, err
	}
	if !ok {
		// Concurrent insert for the same global_id (§4.4 step 3, §7 "upsert conflict").
		return u.unchanged(created)
	}

	hasShakemap := raw.HasShakemap != nil && *raw.HasShakemap
	if hasShakemap && len(result.Curves) > 0 {
		if err := u.store.InsertIntensityCurves(ctx, created.ID, result.Curves); err != nil {
			observability.Warn(u.logger, "insert intensity curves failed", "source_id", raw.SourceID, "error", err)
		} else {
			curvesTrue := true
			created.HasCurves = &curvesTrue
		}
	}

	u.metrics.UpsertOutcomes.WithLabelValues(string(domain.StatusNew)).Inc()
	return created, domain.StatusNew, nil
}

func (u *UpsertEngine) unchanged(existing *domain.Event) (*domain.Event, domain.UpsertStatus, error) {
	u.metrics.UpsertOutcomes.WithLabelValues(string(domain.StatusUnchanged)).Inc()
	return existing, domain.StatusUnchanged, nil
}

// applyRawFields coerces and applies every scalar field from raw plus the
// enrichment result onto base, overwriting every field except identity
// (id, global_id, source, source_id), which callers restore after this
// returns. depth_km is absolutized only on the update path (§4.4 step 2 vs
// step 3).
func applyRawFields(base domain.Event, raw domain.RawEvent, enriched enrich.Result, absDepth bool) domain.Event {
	e := base
	e.Source = raw.Source
	e.SourceID = raw.SourceID
	e.GlobalID = raw.GlobalID
	e.RawData = raw.RawData
	e.RetrievedTime = raw.RetrievedTimeUTC

	if raw.OriginTimeUTC != nil {
		e.OriginTime = *raw.OriginTimeUTC
	}
	e.UpdatedTime = raw.UpdatedTimeUTC

	e.Latitude = raw.Latitude
	e.Longitude = raw.Longitude
	if raw.Latitude != nil && raw.Longitude != nil {
		e.Location = &domain.Point{Lon: *raw.Longitude, Lat: *raw.Latitude}
	} else {
		e.Location = nil
	}

	e.Magnitude = raw.Magnitude
	e.MagType = raw.MagType
	e.DepthKm = raw.DepthKm
	if absDepth && e.DepthKm != nil {
		abs := math.Abs(*e.DepthKm)
		e.DepthKm = &abs
	}

	e.PlaceName = raw.PlaceName
	e.Tsunami = raw.Tsunami

	e.TectonicPlate = enriched.TectonicPlate
	e.OriginCountry = enriched.OriginCountry
	e.AffectedCountries = enriched.AffectedCountries

	return e
}
