// Package runcontext assembles the read-only context for one (date, session)
// slice: its sample manifest and the entity universe with precomputed name
// tokens.
package runcontext

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
	"github.com/JakeFAU/ccnews-ingest/internal/matcher"
	"github.com/JakeFAU/ccnews-ingest/internal/storage"
)

// DefaultFirstDay is the first date covered by the sample manifests.
var DefaultFirstDay = time.Date(2016, time.August, 1, 0, 0, 0, 0, time.UTC)

// ManifestKey returns the object key of the sample manifest for a slice.
func ManifestKey(date time.Time, session ccnews.Session) string {
	return fmt.Sprintf("%d/%02d/%02d/%s/samples.txt", date.Year(), int(date.Month()), date.Day(), session)
}

// Builder resolves RunContexts.
type Builder struct {
	universe ccnews.UniverseResolver
	firstDay time.Time
}

// NewBuilder wires the entity resolver. A zero firstDay uses DefaultFirstDay.
func NewBuilder(universe ccnews.UniverseResolver, firstDay time.Time) (*Builder, error) {
	if universe == nil {
		return nil, fmt.Errorf("universe resolver is required")
	}
	if firstDay.IsZero() {
		firstDay = DefaultFirstDay
	}
	return &Builder{universe: universe, firstDay: truncateDay(firstDay)}, nil
}

// Build returns the context for (date, session). ok is false when there is no
// work: the manifest is missing or lists no samples. Errors are session-fatal.
func (b *Builder) Build(
	ctx context.Context,
	store storage.Provider,
	logger *zap.Logger,
	bucket string,
	date time.Time,
	session ccnews.Session,
) (*ccnews.RunContext, bool, error) {
	date = truncateDay(date)
	logger = logger.With(zap.String("date", date.Format(ccnews.DateLayout)), zap.String("session", string(session)))

	key := ManifestKey(date, session)
	samples, err := readManifest(ctx, store, bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Warn("No samples manifest; skipping session",
				zap.String("event", "manifest_missing"),
				zap.String("key", key),
			)
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(samples) == 0 {
		logger.Warn("Samples manifest is empty; skipping session",
			zap.String("event", "manifest_empty"),
			zap.String("key", key),
		)
		return nil, false, nil
	}

	asOf := b.UniverseDate(date, session)
	entities, err := b.universe.EntitiesAsOf(ctx, asOf)
	if err != nil {
		return nil, false, fmt.Errorf("resolve entity universe as of %s: %w", asOf.Format(ccnews.DateLayout), err)
	}
	tokens := make(map[string]ccnews.TokenSet, len(entities))
	for id, info := range entities {
		if set := matcher.NameTokens(info.DisplayName); len(set) > 0 {
			tokens[id] = set
		}
	}

	logger.Debug("Run context built",
		zap.String("event", "run_context"),
		zap.Int("samples", len(samples)),
		zap.Int("entities", len(entities)),
		zap.String("universe_as_of", asOf.Format(ccnews.DateLayout)),
	)
	return &ccnews.RunContext{
		Date:       date,
		Session:    session,
		Bucket:     bucket,
		Entities:   entities,
		NameTokens: tokens,
		Samples:    samples,
		Logger:     logger,
		Store:      store,
	}, true, nil
}

// UniverseDate is the day whose universe applies to a slice. Overnight
// content is attributed to the prior day's universe, except on the first day
// of the horizon where no prior day exists.
func (b *Builder) UniverseDate(date time.Time, session ccnews.Session) time.Time {
	date = truncateDay(date)
	if session == ccnews.SessionOvernight && !date.Equal(b.firstDay) {
		return date.AddDate(0, 0, -1)
	}
	return date
}

func readManifest(ctx context.Context, store storage.Provider, bucket, key string) ([]string, error) {
	body, err := store.Get(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("get manifest %s: %w", key, err)
	}
	defer body.Close()

	var samples []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			samples = append(samples, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", key, err)
	}
	return samples, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
