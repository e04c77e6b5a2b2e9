package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageMonthQueued Stage = "MONTH_QUEUED"
	StageMonthStart  Stage = "MONTH_START"
	StageSessionDone Stage = "SESSION_DONE"
	StageMonthDone   Stage = "MONTH_DONE"
	StageMonthError  Stage = "MONTH_ERROR"
)

// Event captures one step of a backfill run.
type Event struct {
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	Year  int
	Month time.Month
	// Date and Session scope SESSION_DONE events to one slice.
	Date    string
	Session string
	// Result is the slice outcome (written, empty, no_work, failed).
	Result   string
	Samples  int
	Articles int
	// Dur is the time spent on the slice or month.
	Dur time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Month < time.January || e.Month > time.December {
		return fmt.Errorf("invalid month %d", e.Month)
	}
	switch e.Stage {
	case StageMonthQueued, StageMonthStart, StageMonthDone, StageMonthError:
	case StageSessionDone:
		if e.Date == "" || e.Session == "" {
			return errors.New("session done requires date and session")
		}
		if e.Result == "" {
			return errors.New("session done requires result")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
