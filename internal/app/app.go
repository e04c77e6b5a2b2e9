// Package app assembles the long-lived services of a backfill run and drives
// it. It acts as the dependency container between the CLI and the pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	pubsubapi "cloud.google.com/go/pubsub/v2"
	gcsapi "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/api"
	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
	"github.com/JakeFAU/ccnews-ingest/internal/clock/system"
	"github.com/JakeFAU/ccnews-ingest/internal/config"
	"github.com/JakeFAU/ccnews-ingest/internal/decode"
	"github.com/JakeFAU/ccnews-ingest/internal/dedup"
	"github.com/JakeFAU/ccnews-ingest/internal/dispatcher"
	"github.com/JakeFAU/ccnews-ingest/internal/extract"
	"github.com/JakeFAU/ccnews-ingest/internal/hash/sha1"
	"github.com/JakeFAU/ccnews-ingest/internal/id/uuid"
	"github.com/JakeFAU/ccnews-ingest/internal/langdetect"
	"github.com/JakeFAU/ccnews-ingest/internal/matcher"
	"github.com/JakeFAU/ccnews-ingest/internal/metrics"
	"github.com/JakeFAU/ccnews-ingest/internal/parser"
	"github.com/JakeFAU/ccnews-ingest/internal/policy/ratelimit"
	"github.com/JakeFAU/ccnews-ingest/internal/progress"
	"github.com/JakeFAU/ccnews-ingest/internal/progress/sinks"
	"github.com/JakeFAU/ccnews-ingest/internal/publisher/pubsub"
	"github.com/JakeFAU/ccnews-ingest/internal/runcontext"
	"github.com/JakeFAU/ccnews-ingest/internal/storage"
	"github.com/JakeFAU/ccnews-ingest/internal/storage/gcs"
	"github.com/JakeFAU/ccnews-ingest/internal/storage/local"
	"github.com/JakeFAU/ccnews-ingest/internal/storage/memory"
	"github.com/JakeFAU/ccnews-ingest/internal/storage/postgres"
	"github.com/JakeFAU/ccnews-ingest/internal/storage/s3"
	"github.com/JakeFAU/ccnews-ingest/internal/telemetry"
	"github.com/JakeFAU/ccnews-ingest/internal/warc"
	"github.com/JakeFAU/ccnews-ingest/internal/worker"
)

// Deps are the collaborators that talk to the outside world.
type Deps struct {
	Calendar  ccnews.Calendar
	Universe  ccnews.UniverseResolver
	Detector  ccnews.LanguageDetector
	Stores    storage.Factory
	Publisher ccnews.Publisher
	Clock     ccnews.Clock
}

// App holds the assembled services of one run.
type App struct {
	cfg        config.Config
	bucket     string
	runID      string
	logger     *zap.Logger
	calendar   ccnews.Calendar
	hub        *progress.Hub
	tracker    *progress.Tracker
	dispatcher *dispatcher.Dispatcher
	server     *api.Server
	closers    []func(context.Context) error
}

// New connects to Postgres, storage, Pub/Sub and the language models, then
// assembles the pipeline. Any failure here is configuration-fatal.
func New(ctx context.Context, cfg config.Config, bucket string, logger *zap.Logger) (*App, error) {
	var closers []func(context.Context) error
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i](ctx) //nolint:errcheck // already failing
		}
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func(context.Context) error { pool.Close(); return nil })

	calendar, err := postgres.NewCalendarStore(pool)
	if err != nil {
		return fail(err)
	}
	universe, err := postgres.NewUniverseStore(pool)
	if err != nil {
		return fail(err)
	}

	logger.Info("Loading language models", zap.String("event", "language_models"), zap.Strings("languages", cfg.Parser.Languages))
	detector, err := langdetect.New(cfg.Parser.Languages, cfg.Parser.PreloadLanguages)
	if err != nil {
		return fail(err)
	}

	stores, err := StoreFactory(cfg.Storage)
	if err != nil {
		return fail(err)
	}

	deps := Deps{
		Calendar: calendar,
		Universe: universe,
		Detector: detector,
		Stores:   stores,
		Clock:    system.New(),
	}
	if cfg.PubSub.Topic != "" {
		client, err := pubsubapi.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fail(fmt.Errorf("create pubsub client: %w", err))
		}
		pub := pubsub.New(client)
		deps.Publisher = pub
		closers = append(closers, func(context.Context) error {
			pub.Stop()
			return client.Close()
		})
	}

	a, err := Assemble(ctx, cfg, bucket, logger, deps)
	if err != nil {
		return fail(err)
	}
	a.closers = append(closers, a.closers...)
	return a, nil
}

// Assemble wires the pipeline around already-connected collaborators.
func Assemble(ctx context.Context, cfg config.Config, bucket string, logger *zap.Logger, deps Deps) (*App, error) {
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	runID, err := uuid.NewRunID()
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("run_id", runID), zap.String("bucket", bucket))

	metrics.Init()
	tp, err := telemetry.InitTracerProvider(ctx, runID)
	if err != nil {
		return nil, err
	}
	closers := []func(context.Context) error{tp.Shutdown}

	firstDay, err := cfg.FirstDay()
	if err != nil {
		return nil, err
	}
	extractor, err := extract.New(extract.Config{
		RootSelectors:  cfg.Parser.RootSelectors,
		BodySelectors:  cfg.Parser.BodySelectors,
		NonVisibleTags: cfg.Parser.NonVisibleTags,
		MinWords:       cfg.Parser.MinWords,
	})
	if err != nil {
		return nil, err
	}
	gate, err := parser.NewGate(
		cfg.Gate(),
		decode.New(decode.Config{Aliases: cfg.Parser.CharsetAliases, MaxBytes: cfg.Parser.MaxBodyBytes}),
		extractor,
		deps.Detector,
		matcher.New(cfg.Parser.NameSuffixes),
	)
	if err != nil {
		return nil, err
	}
	builder, err := runcontext.NewBuilder(deps.Universe, firstDay)
	if err != nil {
		return nil, err
	}

	tracker := progress.NewTracker()
	hub := progress.NewHub(progress.Config{Logger: logger}, tracker, sinks.NewLogSink(logger.Named("progress")))

	w := worker.New(
		builder,
		parser.NewProcessor(gate, deps.Clock, warc.WithMaxRecordBytes(cfg.Storage.MaxRecordBytes)),
		dedup.New(sha1.New()),
		deps.Stores,
		deps.Publisher,
		hub,
		deps.Clock,
		worker.Config{Bucket: bucket, Topic: cfg.PubSub.Topic},
		logger.Named("worker"),
	)

	return &App{
		cfg:        cfg,
		bucket:     bucket,
		runID:      runID,
		logger:     logger,
		calendar:   deps.Calendar,
		hub:        hub,
		tracker:    tracker,
		dispatcher: dispatcher.New(w, cfg.Orchestrator.Workers, hub, deps.Clock, logger.Named("dispatcher")),
		server:     api.NewServer(tracker, logger),
		closers:    closers,
	}, nil
}

// StoreFactory returns a factory opening a fresh client of the configured
// provider. The memory provider hands out one shared store. When throttling
// is enabled every client shares a single limiter.
func StoreFactory(cfg config.StorageConfig) (storage.Factory, error) {
	base, err := baseFactory(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.Throttle.Enabled() {
		return base, nil
	}
	limiter := ratelimit.New(cfg.Throttle)
	return func(ctx context.Context) (storage.Provider, error) {
		p, err := base(ctx)
		if err != nil {
			return nil, err
		}
		return limiter.Wrap(p), nil
	}, nil
}

func baseFactory(cfg config.StorageConfig) (storage.Factory, error) {
	switch cfg.Provider {
	case config.ProviderS3:
		return func(context.Context) (storage.Provider, error) {
			return s3.New(cfg.S3)
		}, nil
	case config.ProviderGCS:
		return func(ctx context.Context) (storage.Provider, error) {
			client, err := gcsapi.NewClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("create gcs client: %w", err)
			}
			return gcs.New(client)
		}, nil
	case config.ProviderLocal:
		return func(context.Context) (storage.Provider, error) {
			return local.New(cfg.Local)
		}, nil
	case config.ProviderMemory:
		store := memory.NewBlobStore()
		return func(context.Context) (storage.Provider, error) {
			return store, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

// RunID identifies this run in logs and traces.
func (a *App) RunID() string {
	return a.runID
}

// Tracker exposes run progress.
func (a *App) Tracker() *progress.Tracker {
	return a.tracker
}

// Run backfills one year. Calendar failures are returned; failures inside
// months are logged and counted in the summary.
func (a *App) Run(ctx context.Context, year int) (dispatcher.Summary, error) {
	logger := a.logger.With(zap.Int("year", year))

	if a.cfg.Ops.Addr != "" {
		srvCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := a.server.ListenAndServe(srvCtx, a.cfg.Ops.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Ops server failed", zap.String("event", "ops_server"), zap.Error(err))
			}
		}()
		logger.Info("Ops server listening", zap.String("event", "ops_server"), zap.String("addr", a.cfg.Ops.Addr))
	}

	calendar, err := a.calendar.TradingDates(ctx, year)
	if err != nil {
		return dispatcher.Summary{}, fmt.Errorf("load trading calendar for %d: %w", year, err)
	}
	if len(calendar) == 0 {
		logger.Warn("No trading dates for year", zap.String("event", "calendar_empty"))
		return dispatcher.Summary{}, nil
	}

	a.server.SetReady(true)
	summary := a.dispatcher.Run(ctx, year, calendar)
	logger.Info("Run finished",
		zap.String("event", "run_done"),
		zap.Int("months", summary.Months),
		zap.Int("months_failed", summary.Failed),
	)
	return summary, nil
}

// Close flushes progress and releases clients, newest first.
func (a *App) Close(ctx context.Context) {
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("Error closing progress hub", zap.Error(err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Error releasing service", zap.Error(err))
		}
	}
	_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms
}
