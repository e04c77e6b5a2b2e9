// Package worker runs the per-month ingestion loop: for every trading date and
// session it builds a run context, parses the samples, deduplicates, persists,
// and announces the slice.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
	"github.com/JakeFAU/ccnews-ingest/internal/dedup"
	"github.com/JakeFAU/ccnews-ingest/internal/id/uuid"
	"github.com/JakeFAU/ccnews-ingest/internal/metrics"
	"github.com/JakeFAU/ccnews-ingest/internal/parser"
	"github.com/JakeFAU/ccnews-ingest/internal/persist"
	"github.com/JakeFAU/ccnews-ingest/internal/progress"
	"github.com/JakeFAU/ccnews-ingest/internal/runcontext"
	"github.com/JakeFAU/ccnews-ingest/internal/storage"
)

const tracerName = "github.com/JakeFAU/ccnews-ingest/internal/worker"

// Config controls Worker behavior.
type Config struct {
	// Bucket holds manifests and receives outputs.
	Bucket string
	// Topic receives slice completion messages. Empty disables publishing.
	Topic string
}

// Completion is the message published after a slice is persisted.
type Completion struct {
	SliceID     string `json:"slice_id"`
	Date        string `json:"date"`
	Session     string `json:"session"`
	Samples     int    `json:"samples"`
	Articles    int    `json:"articles"`
	ArticlesKey string `json:"articles_key,omitempty"`
	StatsKey    string `json:"stats_key,omitempty"`
}

// Worker processes whole months sequentially. One Worker may serve several
// months concurrently; each RunMonth call opens its own storage client.
type Worker struct {
	builder   *runcontext.Builder
	processor *parser.Processor
	deduper   *dedup.Deduplicator
	stores    storage.Factory
	publisher ccnews.Publisher
	emitter   progress.Emitter
	clock     ccnews.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. publisher and emitter may be nil.
func New(
	builder *runcontext.Builder,
	processor *parser.Processor,
	deduper *dedup.Deduplicator,
	stores storage.Factory,
	publisher ccnews.Publisher,
	emitter progress.Emitter,
	clock ccnews.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if emitter == nil {
		emitter = progress.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		builder:   builder,
		processor: processor,
		deduper:   deduper,
		stores:    stores,
		publisher: publisher,
		emitter:   emitter,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunMonth processes every date of the month in order, intraday before
// overnight. Session failures are logged and skipped; only a failure to open
// storage fails the month.
func (w *Worker) RunMonth(ctx context.Context, year int, month time.Month, dates []time.Time) error {
	start := w.clock.Now()
	logger := w.logger.With(zap.Int("year", year), zap.Int("month", int(month)))
	w.emitter.Emit(progress.Event{TS: start, Stage: progress.StageMonthStart, Year: year, Month: month})

	store, err := w.stores(ctx)
	if err != nil {
		return fmt.Errorf("open storage for %d-%02d: %w", year, month, err)
	}
	logger.Info("Month started", zap.String("event", "month_start"), zap.Int("dates", len(dates)))

	for _, date := range dates {
		for _, session := range ccnews.Sessions {
			if ctx.Err() != nil {
				return fmt.Errorf("month %d-%02d interrupted: %w", year, month, ctx.Err())
			}
			w.runSession(ctx, store, logger, year, date, session)
		}
	}

	end := w.clock.Now()
	w.emitter.Emit(progress.Event{TS: end, Stage: progress.StageMonthDone, Year: year, Month: month, Dur: end.Sub(start)})
	logger.Info("Month finished", zap.String("event", "month_done"), zap.Duration("elapsed", end.Sub(start)))
	return nil
}

// runSession handles one slice. It never returns an error: everything that
// goes wrong is logged and reported as a failed outcome.
func (w *Worker) runSession(
	ctx context.Context,
	store storage.Provider,
	logger *zap.Logger,
	year int,
	date time.Time,
	session ccnews.Session,
) {
	start := w.clock.Now()
	dateKey := date.Format(ccnews.DateLayout)
	logger = logger.With(zap.String("date", dateKey), zap.String("session", string(session)))

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.session", trace.WithAttributes(
		attribute.String("ccnews.date", dateKey),
		attribute.String("ccnews.session", string(session)),
	))
	defer span.End()

	var (
		result = metrics.SessionFailed
		done   Completion
		note   string
	)
	defer func() {
		if rec := recover(); rec != nil {
			result = metrics.SessionFailed
			note = fmt.Sprint(rec)
			logger.Error("Session panicked; skipping",
				zap.String("event", "session_panic"),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
		if result == metrics.SessionFailed {
			span.SetStatus(codes.Error, note)
		}
		span.SetAttributes(attribute.String("ccnews.result", result), attribute.Int("ccnews.articles", done.Articles))
		metrics.ObserveSession(result, done.Articles)
		w.emitter.Emit(progress.Event{
			TS:       w.clock.Now(),
			Stage:    progress.StageSessionDone,
			Year:     year,
			Month:    date.Month(),
			Date:     dateKey,
			Session:  string(session),
			Result:   result,
			Samples:  done.Samples,
			Articles: done.Articles,
			Dur:      w.clock.Now().Sub(start),
			Note:     note,
		})
	}()

	out, ok, err := w.ingest(ctx, store, logger, date, session)
	switch {
	case err != nil:
		note = err.Error()
		span.RecordError(err)
		logger.Error("Session failed; skipping", zap.String("event", "session_failed"), zap.Error(err))
		return
	case !ok:
		result = metrics.SessionNoWork
		return
	}

	done = Completion{
		SliceID:     uuid.SliceID(date, session),
		Date:        dateKey,
		Session:     string(session),
		Samples:     out.Samples,
		Articles:    out.Articles,
		ArticlesKey: out.ArticlesKey,
		StatsKey:    out.StatsKey,
	}
	result = metrics.SessionWritten
	if out.Articles == 0 {
		result = metrics.SessionEmpty
	}
	logger.Info("Session persisted",
		zap.String("event", "session_done"),
		zap.Int("samples", out.Samples),
		zap.Int("articles", out.Articles),
	)
	w.announce(ctx, logger, done)
}

func (w *Worker) ingest(
	ctx context.Context,
	store storage.Provider,
	logger *zap.Logger,
	date time.Time,
	session ccnews.Session,
) (persist.Outcome, bool, error) {
	rc, ok, err := w.builder.Build(ctx, store, logger, w.cfg.Bucket, date, session)
	if err != nil {
		return persist.Outcome{}, false, fmt.Errorf("build run context: %w", err)
	}
	if !ok {
		return persist.Outcome{}, false, nil
	}

	results := w.processor.ParseSession(ctx, rc)
	if ctx.Err() != nil {
		return persist.Outcome{}, false, fmt.Errorf("parse session: %w", ctx.Err())
	}
	articles, err := w.deduper.Dedup(dedup.Collect(results))
	if err != nil {
		return persist.Outcome{}, false, fmt.Errorf("dedup: %w", err)
	}
	out, err := persist.Persist(ctx, rc, articles, results)
	if err != nil {
		return persist.Outcome{}, false, fmt.Errorf("persist: %w", err)
	}
	return out, true, nil
}

func (w *Worker) announce(ctx context.Context, logger *zap.Logger, msg Completion) {
	if w.publisher == nil || w.cfg.Topic == "" {
		return
	}
	id, err := w.publisher.Publish(ctx, w.cfg.Topic, msg)
	if err != nil {
		metrics.ObservePublishFailure()
		logger.Warn("Completion publish failed",
			zap.String("event", "publish_failed"),
			zap.String("topic", w.cfg.Topic),
			zap.Error(err),
		)
		return
	}
	logger.Debug("Completion published", zap.String("event", "published"), zap.String("message_id", id))
}
