// Package dispatcher fans a year of trading dates out to month workers over a
// bounded pool.
package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
	"github.com/JakeFAU/ccnews-ingest/internal/metrics"
	"github.com/JakeFAU/ccnews-ingest/internal/progress"
)

// MaxWorkers caps the default pool size.
const MaxWorkers = 12

// MonthRunner processes one month of trading dates.
type MonthRunner interface {
	RunMonth(ctx context.Context, year int, month time.Month, dates []time.Time) error
}

// Summary reports how a run went.
type Summary struct {
	Months int
	Failed int
}

// Dispatcher schedules one task per month. Months share no mutable state;
// a failing or panicking month never affects the others.
type Dispatcher struct {
	runner  MonthRunner
	workers int
	emitter progress.Emitter
	clock   ccnews.Clock
	logger  *zap.Logger
}

// DefaultWorkers leaves two CPUs free and caps the pool at MaxWorkers.
func DefaultWorkers() int {
	return max(1, min(runtime.NumCPU()-2, MaxWorkers))
}

// New creates a Dispatcher. workers <= 0 selects DefaultWorkers.
func New(runner MonthRunner, workers int, emitter progress.Emitter, clock ccnews.Clock, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if emitter == nil {
		emitter = progress.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{runner: runner, workers: workers, emitter: emitter, clock: clock, logger: logger}
}

// Run processes every month and blocks until all of them have finished.
func (d *Dispatcher) Run(ctx context.Context, year int, calendar map[time.Month][]time.Time) Summary {
	months := make([]time.Month, 0, len(calendar))
	for m, dates := range calendar {
		if len(dates) > 0 {
			months = append(months, m)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	for _, m := range months {
		d.emitter.Emit(progress.Event{TS: d.clock.Now(), Stage: progress.StageMonthQueued, Year: year, Month: m})
	}
	d.logger.Info("Dispatching months",
		zap.String("event", "dispatch"),
		zap.Int("year", year),
		zap.Int("months", len(months)),
		zap.Int("workers", d.workers),
	)

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.workers)
	for _, m := range months {
		dates := calendar[m]
		g.Go(func() error {
			if err := d.runMonth(ctx, year, m, dates); err != nil {
				failed.Add(1)
				d.emitter.Emit(progress.Event{
					TS: d.clock.Now(), Stage: progress.StageMonthError, Year: year, Month: m, Note: err.Error(),
				})
				d.logger.Error("Month failed",
					zap.String("event", "month_failed"),
					zap.Int("month", int(m)),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks never return errors

	return Summary{Months: len(months), Failed: int(failed.Load())}
}

func (d *Dispatcher) runMonth(ctx context.Context, year int, month time.Month, dates []time.Time) (err error) {
	metrics.IncActiveMonths()
	defer metrics.DecActiveMonths()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("month worker panic: %v", rec)
		}
	}()
	return d.runner.RunMonth(ctx, year, month, dates)
}
