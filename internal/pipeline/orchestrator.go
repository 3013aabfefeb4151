package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seismic-sync/catalog-etl/internal/domain"
	"github.com/seismic-sync/catalog-etl/internal/observability"
	"github.com/seismic-sync/catalog-etl/internal/store"
)

// SourceAdapter fetches and normalizes one catalog's feed (§4.2).
type SourceAdapter interface {
	Fetch(ctx context.Context, window domain.Window) ([]domain.RawEvent, error)
}

// NamedAdapter pairs a SourceAdapter with the catalog name it reports under
// in logs and metrics.
type NamedAdapter struct {
	Name    string
	Adapter SourceAdapter
}

// CycleReport is the one-line summary the Orchestrator emits at the end of
// every cycle (§4.6 step 7, §6 "invocation contract").
type CycleReport struct {
	Duration       time.Duration
	New            int
	Updated        int
	Unchanged      int
	Errors         int
	DuplicateLinks int
}

// Orchestrator runs one sync cycle: window computation, parallel source
// fetch, collapse, upsert, and dedup sweep (§4.6).
type Orchestrator struct {
	store          store.Store
	adapters       []NamedAdapter
	upsert         *UpsertEngine
	dedup          *DedupEngine
	eventPoolWidth int
	publisher      UpsertPublisher
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// UpsertPublisher is notified of new/updated events (§SPEC_FULL B). A nil
// UpsertPublisher disables publication.
type UpsertPublisher interface {
	PublishUpsert(ctx context.Context, event *domain.Event, status domain.UpsertStatus) error
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	s store.Store,
	adapters []NamedAdapter,
	upsert *UpsertEngine,
	dedup *DedupEngine,
	eventPoolWidth int,
	publisher UpsertPublisher,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:          s,
		adapters:       adapters,
		upsert:         upsert,
		dedup:          dedup,
		eventPoolWidth: eventPoolWidth,
		publisher:      publisher,
		metrics:        metrics,
		logger:         logger,
	}
}

// RunCycle executes one full cycle (§4.6).
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleReport, error) {
	start := time.Now()

	window, syncState, err := o.computeWindow(ctx)
	if err != nil {
		return CycleReport{}, fmt.Errorf("orchestrator: compute window: %w", err)
	}

	raws := o.fetchAll(ctx, window)
	collapsed := collapseByGlobalID(raws)

	report := o.upsertAll(ctx, collapsed)

	links, err := o.dedup.Run(ctx)
	if err != nil {
		o.logger.Error("dedup sweep failed", "error", err)
	} else {
		report.DuplicateLinks = links
	}

	now := domain.Now()
	syncState.LastRunAt = &now
	if err := o.store.UpdateSyncState(ctx, syncState); err != nil {
		o.logger.Error("persist sync state failed", "error", err)
	}

	report.Duration = time.Since(start)
	o.metrics.CycleDuration.Observe(report.Duration.Seconds())
	o.metrics.CyclesRun.Inc()

	observability.Notice(o.logger, "cycle complete",
		"duration", report.Duration, "new", report.New, "updated", report.Updated,
		"unchanged", report.Unchanged, "errors", report.Errors, "duplicate_links", report.DuplicateLinks)

	return report, nil
}

// computeWindow loads or creates SyncState and derives the fetch window
// (§4.6 step 1-2).
func (o *Orchestrator) computeWindow(ctx context.Context) (domain.Window, *domain.SyncState, error) {
	syncState, err := o.store.GetOrCreateSyncState(ctx, domain.InitialSyncKey)
	if err != nil {
		return domain.Window{}, nil, err
	}

	now := domain.Now()
	end := now.Add(24 * time.Hour)

	var start time.Time
	if !syncState.Value {
		last, err := o.store.MaxRetrievedTime(ctx)
		if err != nil {
			return domain.Window{}, nil, err
		}
		if last != nil {
			start = last.Add(-24 * time.Hour)
		} else {
			start = now.Add(-30 * 24 * time.Hour)
		}
		syncState.Value = true
	} else {
		start = now.Add(-24 * time.Hour)
	}

	syncState.LastSyncStart = &start
	syncState.LastSyncEnd = &end

	return domain.Window{Start: start, End: end}, syncState, nil
}

// fetchAll fans out the source adapters in parallel (§5 "source fetch"
// pool). A failing adapter is logged and contributes an empty slice; it
// never aborts the cycle (§4.2, §7 "upstream transport").
func (o *Orchestrator) fetchAll(ctx context.Context, window domain.Window) []domain.RawEvent {
	var wg sync.WaitGroup
	results := make([][]domain.RawEvent, len(o.adapters))

	for i, named := range o.adapters {
		wg.Add(1)
		go func(i int, named NamedAdapter) {
			defer wg.Done()
			events, err := named.Adapter.Fetch(ctx, window)
			o.metrics.SourceFetchTotal.WithLabelValues(named.Name).Inc()
			if err != nil {
				o.metrics.SourceFetchErrors.WithLabelValues(named.Name).Inc()
				observability.Warn(o.logger, "source fetch failed", "source", named.Name, "error", err)
				return
			}
			o.metrics.SourceFetchedCount.WithLabelValues(named.Name).Add(float64(len(events)))
			results[i] = events
		}(i, named)
	}
	wg.Wait()

	var all []domain.RawEvent
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// collapseByGlobalID keeps, for each global_id, the record with the largest
// updated_time_utc; absent values sort before present ones, and ties are
// broken by first-seen (§4.6 step 4).
func collapseByGlobalID(raws []domain.RawEvent) []domain.RawEvent {
	best := make(map[string]domain.RawEvent, len(raws))
	order := make([]string, 0, len(raws))

	for _, raw := range raws {
		current, exists := best[raw.GlobalID]
		if !exists {
			best[raw.GlobalID] = raw
			order = append(order, raw.GlobalID)
			continue
		}
		if updatedTimeWins(raw, current) {
			best[raw.GlobalID] = raw
		}
	}

	collapsed := make([]domain.RawEvent, 0, len(order))
	for _, id := range order {
		collapsed = append(collapsed, best[id])
	}
	return collapsed
}

func updatedTimeWins(candidate, current domain.RawEvent) bool {
	if candidate.UpdatedTimeUTC == nil {
		return false
	}
	if current.UpdatedTimeUTC == nil {
		return true
	}
	return candidate.UpdatedTimeUTC.After(*current.UpdatedTimeUTC)
}

// upsertAll feeds the collapsed list through a bounded worker pool (§5
// "event processing" pool) and tallies outcomes.
func (o *Orchestrator) upsertAll(ctx context.Context, raws []domain.RawEvent) CycleReport {
	jobs := make(chan domain.RawEvent, len(raws))
	for _, r := range raws {
		jobs <- r
	}
	close(jobs)

	var mu sync.Mutex
	var report CycleReport
	var wg sync.WaitGroup

	width := o.eventPoolWidth
	if width <= 0 {
		width = 1
	}

	for w := 0; w < width; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range jobs {
				// A panic in one event's processing is recovered here and
				// tallied as an error so the rest of the cycle continues.
				event, status, err := func() (ev *domain.Event, st domain.UpsertStatus, err error) {
					defer func() {
						if r := recover(); r != nil {
							ev, st, err = nil, domain.StatusError, fmt.Errorf("upsert panic: %v", r)
						}
					}()
					return o.upsert.Upsert(ctx, raw)
				}()
				mu.Lock()
				switch {
				case err != nil:
					report.Errors++
					o.logger.Error("upsert failed", "source_id", raw.SourceID, "error", err)
				case status == domain.StatusNew:
					report.New++
				case status == domain.StatusUpdated:
					report.Updated++
				default:
					report.Unchanged++
				}
				mu.Unlock()

				if err == nil && o.publisher != nil {
					if pubErr := o.publisher.PublishUpsert(ctx, event, status); pubErr != nil {
						observability.Warn(o.logger, "publish upsert failed", "source_id", raw.SourceID, "error", pubErr)
					}
				}
			}
		}()
	}
	wg.Wait()

	return report
}
