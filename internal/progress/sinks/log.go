package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/progress"
)

// LogSink writes each progress event as a debug log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Debug("Progress event",
			zap.String("event", "progress"),
			zap.String("stage", string(evt.Stage)),
			zap.Int("year", evt.Year),
			zap.Int("month", int(evt.Month)),
			zap.String("date", evt.Date),
			zap.String("session", evt.Session),
			zap.String("result", evt.Result),
			zap.Int("articles", evt.Articles),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements progress.Sink.
func (s *LogSink) Close(context.Context) error {
	return nil
}
