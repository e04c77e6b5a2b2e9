package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
)

const universeQuery = `
SELECT DISTINCT m.cik::text, h.company_name
FROM snp_membership AS m
JOIN security_profile_history AS h
  ON h.cik = m.cik
 AND m.trading_day <@ h.validity_window
WHERE m.trading_day = $1
ORDER BY m.cik::text`

// UniverseStore resolves index members and their names valid on a given day.
type UniverseStore struct {
	db querier
}

// NewUniverseStore wraps a pool (or a pgxmock pool in tests).
func NewUniverseStore(db querier) (*UniverseStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &UniverseStore{db: db}, nil
}

// EntitiesAsOf returns the entity universe keyed by CIK. When a CIK carries
// several valid names on the day, the first one returned wins.
func (s *UniverseStore) EntitiesAsOf(ctx context.Context, date time.Time) (map[string]ccnews.EntityInfo, error) {
	rows, err := s.db.Query(ctx, universeQuery, date.Format(ccnews.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query entity universe for %s: %w", date.Format(ccnews.DateLayout), err)
	}
	defer rows.Close()

	out := make(map[string]ccnews.EntityInfo)
	for rows.Next() {
		var cik, name string
		if err := rows.Scan(&cik, &name); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if _, seen := out[cik]; seen {
			continue
		}
		out[cik] = ccnews.EntityInfo{ID: cik, DisplayName: name}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity universe: %w", err)
	}
	return out, nil
}
