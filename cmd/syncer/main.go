// Command syncer runs one ingestion cycle: fetch, normalize, enrich,
// upsert, and deduplicate across the IGN, USGS, and EMSC catalogs, then
// exits (§6 "invocation contract" — a batch process run once per
// invocation by an external scheduler).
package main

import (
	"context"
	"os"

	"github.com/seismic-sync/catalog-etl/internal/adapter/emsc"
	"github.com/seismic-sync/catalog-etl/internal/adapter/ign"
	kafkaproducer "github.com/seismic-sync/catalog-etl/internal/adapter/kafka"
	"github.com/seismic-sync/catalog-etl/internal/adapter/usgs"
	"github.com/seismic-sync/catalog-etl/internal/config"
	"github.com/seismic-sync/catalog-etl/internal/domain"
	"github.com/seismic-sync/catalog-etl/internal/enrich"
	"github.com/seismic-sync/catalog-etl/internal/observability"
	"github.com/seismic-sync/catalog-etl/internal/pipeline"
	"github.com/seismic-sync/catalog-etl/internal/store/postgres"
)

const spatialCacheEntries = 2048

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Observability isn't wired up yet at this point, report directly.
		os.Stderr.WriteString("[!] load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout+cfg.SourceFetchTimeout*4)
	defer cancel()

	pgStore, err := postgres.New(ctx, cfg)
	if err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	cachedStore := enrich.NewCachedStore(pgStore, spatialCacheEntries)
	contourFetcher := enrich.NewFetcher(cfg.SourceFetchTimeout)
	enricher := enrich.New(cachedStore, contourFetcher, logger)

	adapters := []pipeline.NamedAdapter{
		{Name: ign.SourceName, Adapter: ign.New(cfg.SourceFetchTimeout)},
		{Name: usgs.SourceName, Adapter: usgs.New(cfg.SourceFetchTimeout)},
		{Name: emsc.SourceName, Adapter: emsc.New(cfg.SourceFetchTimeout)},
	}

	var upsertPublisher pipeline.UpsertPublisher
	var linkPublisher pipeline.LinkPublisher
	var producer *kafkaproducer.Writer
	if cfg.KafkaEventsTopic != "" {
		producer = kafkaproducer.NewWriter(cfg, logger)
		upsertPublisher = producer
		linkPublisher = producer
	}

	upsertEngine := pipeline.NewUpsertEngine(cachedStore, enricher, metrics, logger)
	dedupParams := domain.DedupParams{
		DtThresholdSeconds: cfg.DedupDtThresholdSeconds,
		DdThresholdKm:      cfg.DedupDdThresholdKm,
		DmThreshold:        cfg.DedupDmThreshold,
	}
	dedupEngine := pipeline.NewDedupEngine(cachedStore, dedupParams, cfg.DedupPoolWidth, linkPublisher, metrics, logger)

	orchestrator := pipeline.NewOrchestrator(
		cachedStore, adapters, upsertEngine, dedupEngine,
		cfg.EventPoolWidth, upsertPublisher, metrics, logger,
	)

	report, err := orchestrator.RunCycle(ctx)
	if err != nil {
		logger.Error("cycle failed", "error", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			observability.Warn(logger, "kafka producer close failed", "error", err)
		}
	}

	if err := metrics.Push(cfg.PushgatewayURL); err != nil {
		observability.Warn(logger, "metrics push failed", "error", err)
	}

	logger.Info("cycle report",
		"duration", report.Duration,
		"new", report.New,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"errors", report.Errors,
		"duplicate_links", report.DuplicateLinks,
	)

	// Exit status is 0 even if individual events failed; only an
	// unrecoverable startup failure (handled above) is non-zero (§6).
	os.Exit(0)
}
