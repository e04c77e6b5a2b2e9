package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/progress"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) }

type fakeRunner struct {
	mu      sync.Mutex
	ran     []time.Month
	active  atomic.Int64
	peak    atomic.Int64
	failOn  time.Month
	panicOn time.Month
	hold    time.Duration
}

func (r *fakeRunner) RunMonth(_ context.Context, _ int, month time.Month, _ []time.Time) error {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(r.hold)

	r.mu.Lock()
	r.ran = append(r.ran, month)
	r.mu.Unlock()

	switch month {
	case r.failOn:
		return errors.New("storage unavailable")
	case r.panicOn:
		panic("month exploded")
	}
	return nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	stages map[progress.Stage]int
}

func (e *recordingEmitter) Emit(evt progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stages[evt.Stage]++
}

func calendar(months ...time.Month) map[time.Month][]time.Time {
	out := make(map[time.Month][]time.Time, len(months))
	for _, m := range months {
		out[m] = []time.Time{time.Date(2020, m, 2, 0, 0, 0, 0, time.UTC)}
	}
	return out
}

// TestDispatcherRunsEveryMonth ensures all months run and failures stay isolated.
func TestDispatcherRunsEveryMonth(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{failOn: time.February, panicOn: time.March}
	emitter := &recordingEmitter{stages: map[progress.Stage]int{}}
	d := New(runner, 2, emitter, fixedClock{}, zap.NewNop())

	summary := d.Run(context.Background(), 2020, calendar(time.January, time.February, time.March, time.April))

	assert.Equal(t, Summary{Months: 4, Failed: 2}, summary)
	assert.ElementsMatch(t, []time.Month{time.January, time.February, time.March, time.April}, runner.ran)
	assert.Equal(t, 4, emitter.stages[progress.StageMonthQueued])
	assert.Equal(t, 2, emitter.stages[progress.StageMonthError])
}

// TestDispatcherBoundsConcurrency verifies no more than the configured workers run at once.
func TestDispatcherBoundsConcurrency(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{hold: 20 * time.Millisecond}
	d := New(runner, 3, nil, fixedClock{}, nil)
	summary := d.Run(context.Background(), 2020, calendar(
		time.January, time.February, time.March, time.April, time.May, time.June, time.July, time.August,
	))

	require.Equal(t, 8, summary.Months)
	assert.LessOrEqual(t, runner.peak.Load(), int64(3))
	assert.Positive(t, runner.peak.Load())
}

func TestDispatcherSkipsEmptyMonths(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	cal := calendar(time.January)
	cal[time.February] = nil
	summary := New(runner, 1, nil, fixedClock{}, nil).Run(context.Background(), 2020, cal)

	assert.Equal(t, Summary{Months: 1}, summary)
	assert.Equal(t, []time.Month{time.January}, runner.ran)
}

func TestDefaultWorkers(t *testing.T) {
	t.Parallel()

	n := DefaultWorkers()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, MaxWorkers)
	assert.Equal(t, n, New(&fakeRunner{}, 0, nil, fixedClock{}, nil).workers)
}
