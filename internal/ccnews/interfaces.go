package ccnews

import (
	"context"
	"time"
)

// Calendar lists trading dates for a year grouped by month, ascending.
type Calendar interface {
	TradingDates(ctx context.Context, year int) (map[time.Month][]time.Time, error)
}

// UniverseResolver returns the tracked entities active on a date keyed by id.
type UniverseResolver interface {
	EntitiesAsOf(ctx context.Context, date time.Time) (map[string]EntityInfo, error)
}

// LanguageDetector reports the language of a text and the confidence in it.
// ok is false when no language could be determined.
type LanguageDetector interface {
	Detect(text string) (lang string, confidence float64, ok bool)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
