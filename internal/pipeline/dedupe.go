package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/seismic-sync/catalog-etl/internal/domain"
	"github.com/seismic-sync/catalog-etl/internal/observability"
	"github.com/seismic-sync/catalog-etl/internal/store"
)

// LinkPublisher is notified of newly created duplicate links, e.g. to
// publish a change event (§SPEC_FULL B). Optional: a nil LinkPublisher
// disables publication.
type LinkPublisher interface {
	PublishDuplicateLink(ctx context.Context, link domain.DuplicateLink) error
}

// DedupEngine runs the time-window sweep over canonical events and creates
// duplicate links (§4.5).
type DedupEngine struct {
	store     store.Store
	params    domain.DedupParams
	poolWidth int
	publisher LinkPublisher
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewDedupEngine creates a DedupEngine. publisher may be nil.
func NewDedupEngine(s store.Store, params domain.DedupParams, poolWidth int, publisher LinkPublisher, metrics *observability.Metrics, logger *slog.Logger) *DedupEngine {
	return &DedupEngine{
		store:     s,
		params:    params,
		poolWidth: poolWidth,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run performs one full sweep and returns the number of new links created
// this cycle.
func (d *DedupEngine) Run(ctx context.Context) (int, error) {
	events, err := d.store.ListCanonicalEventsOrderedByOriginTime(ctx)
	if err != nil {
		return 0, err
	}

	jobs := make(chan int, len(events))
	for i := range events {
		jobs <- i
	}
	close(jobs)

	var created int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	width := d.poolWidth
	if width <= 0 {
		width = 1
	}

	for w := 0; w < width; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				n := d.sweepFrom(ctx, events, i)
				if n > 0 {
					mu.Lock()
					created += int64(n)
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	return int(created), nil
}

// sweepFrom checks anchor i against every later event whose origin_time is
// within dt_threshold, breaking on the first one outside the window —
// events are sorted ascending, so nothing further can qualify either
// (§4.5).
func (d *DedupEngine) sweepFrom(ctx context.Context, events []domain.Event, i int) int {
	anchor := events[i]
	linked := 0

	for j := i + 1; j < len(events); j++ {
		candidate := events[j]
		if candidate.OriginTime.Sub(anchor.OriginTime).Seconds() > d.params.DtThresholdSeconds {
			break
		}

		d.metrics.DedupPairsChecked.Inc()

		result, ok := domain.IsDuplicatePair(anchor, candidate, d.params)
		if !ok {
			continue
		}

		canonical, duplicate, ok := domain.Canonical(anchor, candidate)
		if !ok {
			// Tie in source priority (§9 open question 3): skip rather than
			// invent an order.
			continue
		}

		link := domain.DuplicateLink{
			CanonicalID:  canonical.ID,
			DuplicateID:  duplicate.ID,
			DeltaSeconds: result.DeltaSeconds,
			DeltaKm:      result.DeltaKm,
			DeltaMag:     result.DeltaMag,
		}

		wasCreated, err := d.store.CreateDuplicateLinkIfAbsent(ctx, link)
		if err != nil {
			observability.Warn(d.logger, "duplicate link creation failed",
				"canonical_id", canonical.ID, "duplicate_id", duplicate.ID, "error", err)
			continue
		}
		if !wasCreated {
			continue
		}

		d.metrics.DedupLinksCreated.Inc()
		linked++

		if d.publisher != nil {
			if err := d.publisher.PublishDuplicateLink(ctx, link); err != nil {
				observability.Warn(d.logger, "publish duplicate link failed", "error", err)
			}
		}
	}

	return linked
}
