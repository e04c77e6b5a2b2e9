// Package ccnews defines core types shared across the ingestion subsystems.
package ccnews

import (
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/storage"
)

// Session is one of the two daily buckets captured content is partitioned into.
type Session string

// Session values used in manifests, logs, and output partitions.
const (
	SessionIntraday  Session = "intraday"
	SessionOvernight Session = "overnight"
)

// Sessions lists the sessions in processing order.
var Sessions = []Session{SessionIntraday, SessionOvernight}

// DateLayout formats trading dates in keys, rows, and logs.
const DateLayout = "2006-01-02"

// EntityInfo identifies a tracked organization.
type EntityInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// TokenSet is a set of canonical name tokens.
type TokenSet map[string]struct{}

// RunContext carries everything needed to parse one (date, session) slice.
// It is built once and treated as read-only afterwards.
type RunContext struct {
	Date       time.Time
	Session    Session
	Bucket     string
	Entities   map[string]EntityInfo
	NameTokens map[string]TokenSet
	Samples    []string
	Logger     *zap.Logger
	Store      storage.Provider
}

// DateKey returns the context date formatted with DateLayout.
func (rc *RunContext) DateKey() string {
	return rc.Date.Format(DateLayout)
}

// ArticleRecord is a response record that passed every gate.
type ArticleRecord struct {
	SourceURI          string   `json:"source_uri"`
	CaptureTime        string   `json:"capture_time"`
	TargetURL          string   `json:"target_url"`
	HTTPStatus         int      `json:"http_status"`
	ContentType        string   `json:"content_type"`
	PayloadDigest      string   `json:"payload_digest"`
	TradingDate        string   `json:"trading_date"`
	Session            Session  `json:"session"`
	EntityIDs          []string `json:"entity_ids"`
	WordCount          int      `json:"word_count"`
	LanguageConfidence float64  `json:"language_confidence"`
	Text               string   `json:"text"`
	ArticleID          string   `json:"article_id,omitempty"`
}

// SampleMetrics counts how records of one archive fared against the gates.
// Counters only ever increase while the sample is scanned.
type SampleMetrics struct {
	RecordsScanned      int64 `json:"records_scanned"`
	HTML200Count        int64 `json:"html_200_count"`
	UnhandledErrors     int64 `json:"unhandled_errors"`
	DecompressionErrors int64 `json:"decompression_errors"`
	LengthOKCount       int64 `json:"length_ok_count"`
	TooLongCount        int64 `json:"too_long_count"`
	LanguageOKCount     int64 `json:"language_ok_count"`
	EntityMatchedCount  int64 `json:"entity_matched_count"`
	ArticlesKept        int64 `json:"articles_kept"`
}

// Counters returns the metrics keyed by column name.
func (m SampleMetrics) Counters() map[string]int64 {
	return map[string]int64{
		"records_scanned":      m.RecordsScanned,
		"html_200_count":       m.HTML200Count,
		"unhandled_errors":     m.UnhandledErrors,
		"decompression_errors": m.DecompressionErrors,
		"length_ok_count":      m.LengthOKCount,
		"too_long_count":       m.TooLongCount,
		"language_ok_count":    m.LanguageOKCount,
		"entity_matched_count": m.EntityMatchedCount,
		"articles_kept":        m.ArticlesKept,
	}
}

// SampleResult is the outcome of scanning one archive.
type SampleResult struct {
	SampleURI string
	Articles  []ArticleRecord
	Metrics   SampleMetrics
}
