package postgres

import (
	"context"
	"fmt"
	"time"
)

const tradingDaysQuery = `
SELECT trading_day
FROM trading_calendar
WHERE is_trading_day = TRUE
  AND EXTRACT(YEAR FROM trading_day) = $1
ORDER BY trading_day`

// CalendarStore reads trading days from the trading_calendar table.
type CalendarStore struct {
	db querier
}

// NewCalendarStore wraps a pool (or a pgxmock pool in tests).
func NewCalendarStore(db querier) (*CalendarStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &CalendarStore{db: db}, nil
}

// TradingDates returns the year's trading days grouped by month, each month in
// ascending order.
func (s *CalendarStore) TradingDates(ctx context.Context, year int) (map[time.Month][]time.Time, error) {
	rows, err := s.db.Query(ctx, tradingDaysQuery, year)
	if err != nil {
		return nil, fmt.Errorf("query trading calendar: %w", err)
	}
	defer rows.Close()

	out := make(map[time.Month][]time.Time)
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan trading day: %w", err)
		}
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		out[day.Month()] = append(out[day.Month()], day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trading calendar: %w", err)
	}
	return out, nil
}
