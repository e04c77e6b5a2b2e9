package parser

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
	"github.com/JakeFAU/ccnews-ingest/internal/metrics"
	"github.com/JakeFAU/ccnews-ingest/internal/storage"
	"github.com/JakeFAU/ccnews-ingest/internal/warc"
)

// Processor streams archive samples through a Gate, one record at a time.
type Processor struct {
	gate       *Gate
	clock      ccnews.Clock
	readerOpts []warc.Option
}

// NewProcessor builds a Processor.
func NewProcessor(gate *Gate, clock ccnews.Clock, readerOpts ...warc.Option) *Processor {
	return &Processor{gate: gate, clock: clock, readerOpts: readerOpts}
}

// ParseSession processes every sample of the context in manifest order.
func (p *Processor) ParseSession(ctx context.Context, rc *ccnews.RunContext) []ccnews.SampleResult {
	results := make([]ccnews.SampleResult, 0, len(rc.Samples))
	for _, uri := range rc.Samples {
		if ctx.Err() != nil {
			rc.Logger.Warn("Session parse cancelled",
				zap.String("event", "session_cancelled"),
				zap.Int("samples_done", len(results)),
			)
			break
		}
		results = append(results, p.ProcessSample(ctx, rc, uri))
	}
	return results
}

// ProcessSample scans one archive. It always returns a result; failures are
// reflected in the counters and the log.
func (p *Processor) ProcessSample(ctx context.Context, rc *ccnews.RunContext, uri string) (res ccnews.SampleResult) {
	start := p.clock.Now()
	res.SampleURI = uri
	logger := rc.Logger.With(zap.String("sample", uri))
	defer func() {
		metrics.ObserveSample(res.Metrics, p.clock.Now().Sub(start))
		logger.Debug("Sample processed",
			zap.String("event", "sample_done"),
			zap.Int64("records_scanned", res.Metrics.RecordsScanned),
			zap.Int64("articles_kept", res.Metrics.ArticlesKept),
		)
	}()

	body, err := p.open(ctx, rc, uri)
	if err != nil {
		res.Metrics.UnhandledErrors++
		logger.Error("Failed to open sample", zap.String("event", "sample_open_error"), zap.Error(err))
		return res
	}
	defer body.Close()

	reader, err := warc.NewReader(body, p.readerOpts...)
	if err != nil {
		res.Metrics.UnhandledErrors++
		logger.Error("Failed to read sample", zap.String("event", "stream_error"), zap.Error(err))
		return res
	}
	defer reader.Close()

	for {
		if ctx.Err() != nil {
			logger.Warn("Sample scan cancelled", zap.String("event", "sample_cancelled"))
			return res
		}
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return res
		}
		if errors.Is(err, warc.ErrRecordTooLarge) {
			res.Metrics.RecordsScanned++
			res.Metrics.UnhandledErrors++
			logger.Warn("Skipping oversized record", zap.String("event", "record_too_large"), zap.Error(err))
			continue
		}
		if err != nil {
			res.Metrics.UnhandledErrors++
			logger.Error("Archive stream failed; keeping partial results",
				zap.String("event", "stream_error"),
				zap.Int64("records_scanned", res.Metrics.RecordsScanned),
				zap.Error(err),
			)
			return res
		}
		res.Metrics.RecordsScanned++
		if rec.Type() != warc.TypeResponse {
			continue
		}

		article, err := p.evaluate(rc, uri, rec, &res.Metrics)
		if err != nil {
			res.Metrics.UnhandledErrors++
			logger.Warn("Skipping record",
				zap.String("event", "record_error"),
				zap.String("record_id", rec.RecordID()),
				zap.Error(err),
			)
			continue
		}
		if article != nil {
			res.Articles = append(res.Articles, *article)
		}
	}
}

func (p *Processor) open(ctx context.Context, rc *ccnews.RunContext, uri string) (io.ReadCloser, error) {
	bucket, key, err := storage.ParseURI(uri, rc.Bucket)
	if err != nil {
		return nil, err
	}
	body, err := rc.Store.Get(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("get sample: %w", err)
	}
	return body, nil
}

func (p *Processor) evaluate(
	rc *ccnews.RunContext,
	uri string,
	rec *warc.Record,
	m *ccnews.SampleMetrics,
) (article *ccnews.ArticleRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			article, err = nil, fmt.Errorf("panic while gating record: %v", r)
		}
	}()
	return p.gate.Evaluate(rc, uri, rec, m)
}
