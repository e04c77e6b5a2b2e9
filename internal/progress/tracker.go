package progress

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MonthState is the lifecycle state of one month worker.
type MonthState string

// Month lifecycle states.
const (
	MonthQueued  MonthState = "queued"
	MonthRunning MonthState = "running"
	MonthDone    MonthState = "done"
	MonthFailed  MonthState = "failed"
)

// SessionStatus is the recorded outcome of one (date, session) slice.
type SessionStatus struct {
	Date     string        `json:"date"`
	Session  string        `json:"session"`
	Result   string        `json:"result"`
	Samples  int           `json:"samples"`
	Articles int           `json:"articles"`
	Duration time.Duration `json:"duration_ns"`
	Note     string        `json:"note,omitempty"`
}

// MonthStatus summarises one month worker.
type MonthStatus struct {
	Year       int             `json:"year"`
	Month      time.Month      `json:"month"`
	State      MonthState      `json:"state"`
	StartedAt  time.Time       `json:"started_at,omitzero"`
	FinishedAt time.Time       `json:"finished_at,omitzero"`
	Articles   int             `json:"articles"`
	Failures   int             `json:"failures"`
	Error      string          `json:"error,omitempty"`
	Sessions   []SessionStatus `json:"sessions"`
}

// Tracker is a Sink that keeps the latest state of every month in memory.
type Tracker struct {
	mu     sync.RWMutex
	months map[time.Month]*MonthStatus
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{months: make(map[time.Month]*MonthStatus)}
}

// Consume applies a batch of events.
func (t *Tracker) Consume(_ context.Context, batch []Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, evt := range batch {
		t.apply(evt)
	}
	return nil
}

// Close implements Sink.
func (t *Tracker) Close(context.Context) error {
	return nil
}

func (t *Tracker) apply(evt Event) {
	m, ok := t.months[evt.Month]
	if !ok {
		m = &MonthStatus{Year: evt.Year, Month: evt.Month, State: MonthQueued}
		t.months[evt.Month] = m
	}
	switch evt.Stage {
	case StageMonthQueued:
	case StageMonthStart:
		m.State = MonthRunning
		m.StartedAt = evt.TS
	case StageSessionDone:
		m.Sessions = append(m.Sessions, SessionStatus{
			Date:     evt.Date,
			Session:  evt.Session,
			Result:   evt.Result,
			Samples:  evt.Samples,
			Articles: evt.Articles,
			Duration: evt.Dur,
			Note:     evt.Note,
		})
		m.Articles += evt.Articles
		if evt.Result == "failed" {
			m.Failures++
		}
	case StageMonthDone:
		m.State = MonthDone
		m.FinishedAt = evt.TS
	case StageMonthError:
		m.State = MonthFailed
		m.FinishedAt = evt.TS
		m.Error = evt.Note
	}
}

// Snapshot returns a copy of every month ordered by month.
func (t *Tracker) Snapshot() []MonthStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]MonthStatus, 0, len(t.months))
	for _, m := range t.months {
		cp := *m
		cp.Sessions = append([]SessionStatus(nil), m.Sessions...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Month returns the status of one month.
func (t *Tracker) Month(month time.Month) (MonthStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.months[month]
	if !ok {
		return MonthStatus{}, false
	}
	cp := *m
	cp.Sessions = append([]SessionStatus(nil), m.Sessions...)
	return cp, true
}
