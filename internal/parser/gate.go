// Package parser applies the record gate to archive samples and accumulates
// per-sample diagnostics.
package parser

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
	"github.com/JakeFAU/ccnews-ingest/internal/decode"
	"github.com/JakeFAU/ccnews-ingest/internal/extract"
	"github.com/JakeFAU/ccnews-ingest/internal/matcher"
	"github.com/JakeFAU/ccnews-ingest/internal/warc"
)

// Config holds the gate thresholds.
type Config struct {
	MinWords      int
	MaxWords      int
	Language      string
	MinConfidence float64
	MaxEntities   int
}

// DefaultConfig returns the thresholds used in production runs.
func DefaultConfig() Config {
	return Config{
		MinWords:      25,
		MaxWords:      10000,
		Language:      "en",
		MinConfidence: 0.80,
		MaxEntities:   3,
	}
}

// Gate runs a response record through the sequential accept/reject checks.
type Gate struct {
	cfg       Config
	decoder   *decode.Decoder
	extractor *extract.Extractor
	detector  ccnews.LanguageDetector
	matcher   *matcher.Matcher
}

// NewGate wires the gate's collaborators.
func NewGate(
	cfg Config,
	decoder *decode.Decoder,
	extractor *extract.Extractor,
	detector ccnews.LanguageDetector,
	m *matcher.Matcher,
) (*Gate, error) {
	switch {
	case decoder == nil:
		return nil, fmt.Errorf("decoder is required")
	case extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	case detector == nil:
		return nil, fmt.Errorf("language detector is required")
	case m == nil:
		return nil, fmt.Errorf("matcher is required")
	}
	return &Gate{cfg: cfg, decoder: decoder, extractor: extractor, detector: detector, matcher: m}, nil
}

// Evaluate returns the article for an accepted record and nil for a rejected
// one. Counters in metrics are bumped for every gate the record passes.
// A returned error means the record itself could not be interpreted.
func (g *Gate) Evaluate(
	rc *ccnews.RunContext,
	sampleURI string,
	rec *warc.Record,
	metrics *ccnews.SampleMetrics,
) (*ccnews.ArticleRecord, error) {
	resp, err := rec.HTTPResponse()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	metrics.HTML200Count++

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.DecompressionErrors++
		g.logDecodeFailure(rc, sampleURI, rec, fmt.Errorf("read body: %w", err))
		return nil, nil
	}
	html, err := g.decoder.Decode(body, contentType, resp.Header.Get("Content-Encoding"))
	if err != nil {
		metrics.DecompressionErrors++
		g.logDecodeFailure(rc, sampleURI, rec, err)
		return nil, nil
	}
	text, ok := g.extractor.Extract(html)
	if !ok {
		return nil, nil
	}

	words := strings.Fields(text)
	if len(words) < g.cfg.MinWords {
		return nil, nil
	}
	metrics.LengthOKCount++
	if g.cfg.MaxWords > 0 && len(words) > g.cfg.MaxWords {
		metrics.TooLongCount++
		return nil, nil
	}

	lang, confidence, ok := g.detector.Detect(text)
	if !ok || lang != g.cfg.Language || confidence < g.cfg.MinConfidence {
		return nil, nil
	}
	metrics.LanguageOKCount++

	ids := g.matcher.Match(words, rc.NameTokens)
	if len(ids) == 0 {
		return nil, nil
	}
	metrics.EntityMatchedCount++
	if len(ids) > g.cfg.MaxEntities {
		return nil, nil
	}
	metrics.ArticlesKept++

	return &ccnews.ArticleRecord{
		SourceURI:          sampleURI,
		CaptureTime:        rec.Date(),
		TargetURL:          rec.TargetURI(),
		HTTPStatus:         resp.StatusCode,
		ContentType:        contentType,
		PayloadDigest:      rec.PayloadDigest(),
		TradingDate:        rc.DateKey(),
		Session:            rc.Session,
		EntityIDs:          ids,
		WordCount:          len(words),
		LanguageConfidence: confidence,
		Text:               text,
	}, nil
}

func (g *Gate) logDecodeFailure(rc *ccnews.RunContext, sampleURI string, rec *warc.Record, err error) {
	rc.Logger.Warn("Failed to decode response body",
		zap.String("event", "decompression_error"),
		zap.String("sample", sampleURI),
		zap.String("record_id", rec.RecordID()),
		zap.String("target_uri", rec.TargetURI()),
		zap.Error(err),
	)
}
