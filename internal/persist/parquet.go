// Package persist writes slice outputs as Parquet objects under partitioned keys.
package persist

import (
	"bytes"
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
)

type articleRow struct {
	ArticleID          string   `parquet:"article_id"`
	SourceURI          string   `parquet:"source_uri"`
	CaptureTime        string   `parquet:"capture_time"`
	TargetURL          string   `parquet:"target_url"`
	HTTPStatus         int32    `parquet:"http_status"`
	ContentType        string   `parquet:"content_type"`
	PayloadDigest      string   `parquet:"payload_digest"`
	TradingDate        string   `parquet:"trading_date"`
	Session            string   `parquet:"session"`
	EntityIDs          []string `parquet:"entity_ids,list"`
	WordCount          int32    `parquet:"word_count"`
	LanguageConfidence float64  `parquet:"language_confidence"`
	Text               string   `parquet:"text"`
}

type statsRow struct {
	Date                string `parquet:"date"`
	Session             string `parquet:"session"`
	SampleURI           string `parquet:"sample_uri"`
	RecordsScanned      int64  `parquet:"records_scanned"`
	HTML200Count        int64  `parquet:"html_200_count"`
	UnhandledErrors     int64  `parquet:"unhandled_errors"`
	DecompressionErrors int64  `parquet:"decompression_errors"`
	LengthOKCount       int64  `parquet:"length_ok_count"`
	TooLongCount        int64  `parquet:"too_long_count"`
	LanguageOKCount     int64  `parquet:"language_ok_count"`
	EntityMatchedCount  int64  `parquet:"entity_matched_count"`
	ArticlesKept        int64  `parquet:"articles_kept"`
}

// Outcome describes what Persist wrote. Empty keys were skipped.
type Outcome struct {
	ArticlesKey string `json:"articles_key,omitempty"`
	StatsKey    string `json:"stats_key,omitempty"`
	Articles    int    `json:"articles"`
	Samples     int    `json:"samples"`
}

// ArticlesKey is the object key of a slice's article output.
func ArticlesKey(rc *ccnews.RunContext) string {
	return partition("ccnews_articles", rc) + "/articles.parquet"
}

// StatsKey is the object key of a slice's per-sample diagnostics.
func StatsKey(rc *ccnews.RunContext) string {
	return partition("ccnews_sample_stats", rc) + "/sample_stats.parquet"
}

func partition(dataset string, rc *ccnews.RunContext) string {
	return fmt.Sprintf("%s/year=%d/month=%02d/day=%02d/session=%s",
		dataset, rc.Date.Year(), int(rc.Date.Month()), rc.Date.Day(), rc.Session)
}

// Persist writes the deduplicated articles and the per-sample metrics for a
// slice. The article object is skipped when there are no articles; the stats
// object is skipped only when no sample was attempted.
func Persist(
	ctx context.Context,
	rc *ccnews.RunContext,
	articles []ccnews.ArticleRecord,
	results []ccnews.SampleResult,
) (Outcome, error) {
	var out Outcome

	if len(articles) == 0 {
		rc.Logger.Warn("No articles to write; skipping article output",
			zap.String("event", "persist_articles_skipped"),
		)
	} else {
		key := ArticlesKey(rc)
		data, err := EncodeArticles(articles)
		if err != nil {
			return out, err
		}
		if err := rc.Store.Put(ctx, rc.Bucket, key, data); err != nil {
			return out, fmt.Errorf("put %s: %w", key, err)
		}
		out.ArticlesKey, out.Articles = key, len(articles)
		rc.Logger.Info("Wrote articles",
			zap.String("event", "persist_articles"),
			zap.String("key", key),
			zap.Int("articles", len(articles)),
		)
	}

	if len(results) == 0 {
		return out, nil
	}
	key := StatsKey(rc)
	data, err := EncodeStats(rc, results)
	if err != nil {
		return out, err
	}
	if err := rc.Store.Put(ctx, rc.Bucket, key, data); err != nil {
		return out, fmt.Errorf("put %s: %w", key, err)
	}
	out.StatsKey, out.Samples = key, len(results)
	rc.Logger.Info("Wrote sample stats",
		zap.String("event", "persist_stats"),
		zap.String("key", key),
		zap.Int("samples", len(results)),
	)
	return out, nil
}

// EncodeArticles renders articles as a Parquet file.
func EncodeArticles(articles []ccnews.ArticleRecord) ([]byte, error) {
	rows := make([]articleRow, len(articles))
	for i, a := range articles {
		rows[i] = articleRow{
			ArticleID:          a.ArticleID,
			SourceURI:          a.SourceURI,
			CaptureTime:        a.CaptureTime,
			TargetURL:          a.TargetURL,
			HTTPStatus:         int32(a.HTTPStatus), // #nosec G115 -- HTTP status codes fit in int32.
			ContentType:        a.ContentType,
			PayloadDigest:      a.PayloadDigest,
			TradingDate:        a.TradingDate,
			Session:            string(a.Session),
			EntityIDs:          a.EntityIDs,
			WordCount:          int32(a.WordCount), // #nosec G115 -- bounded by the max word gate.
			LanguageConfidence: a.LanguageConfidence,
			Text:               a.Text,
		}
	}
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, fmt.Errorf("encode articles parquet: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeStats renders one diagnostics row per sample as a Parquet file.
func EncodeStats(rc *ccnews.RunContext, results []ccnews.SampleResult) ([]byte, error) {
	rows := make([]statsRow, len(results))
	for i, r := range results {
		m := r.Metrics
		rows[i] = statsRow{
			Date:                rc.DateKey(),
			Session:             string(rc.Session),
			SampleURI:           r.SampleURI,
			RecordsScanned:      m.RecordsScanned,
			HTML200Count:        m.HTML200Count,
			UnhandledErrors:     m.UnhandledErrors,
			DecompressionErrors: m.DecompressionErrors,
			LengthOKCount:       m.LengthOKCount,
			TooLongCount:        m.TooLongCount,
			LanguageOKCount:     m.LanguageOKCount,
			EntityMatchedCount:  m.EntityMatchedCount,
			ArticlesKept:        m.ArticlesKept,
		}
	}
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, fmt.Errorf("encode sample stats parquet: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeArticles reads an article Parquet file back into records.
func DecodeArticles(data []byte) ([]ccnews.ArticleRecord, error) {
	rows, err := parquet.Read[articleRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode articles parquet: %w", err)
	}
	out := make([]ccnews.ArticleRecord, len(rows))
	for i, r := range rows {
		out[i] = ccnews.ArticleRecord{
			ArticleID:          r.ArticleID,
			SourceURI:          r.SourceURI,
			CaptureTime:        r.CaptureTime,
			TargetURL:          r.TargetURL,
			HTTPStatus:         int(r.HTTPStatus),
			ContentType:        r.ContentType,
			PayloadDigest:      r.PayloadDigest,
			TradingDate:        r.TradingDate,
			Session:            ccnews.Session(r.Session),
			EntityIDs:          r.EntityIDs,
			WordCount:          int(r.WordCount),
			LanguageConfidence: r.LanguageConfidence,
			Text:               r.Text,
		}
	}
	return out, nil
}

// StatsRow is a decoded diagnostics row.
type StatsRow struct {
	Date      string
	Session   string
	SampleURI string
	Metrics   ccnews.SampleMetrics
}

// DecodeStats reads a sample stats Parquet file.
func DecodeStats(data []byte) ([]StatsRow, error) {
	rows, err := parquet.Read[statsRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode sample stats parquet: %w", err)
	}
	out := make([]StatsRow, len(rows))
	for i, r := range rows {
		out[i] = StatsRow{
			Date:      r.Date,
			Session:   r.Session,
			SampleURI: r.SampleURI,
			Metrics: ccnews.SampleMetrics{
				RecordsScanned:      r.RecordsScanned,
				HTML200Count:        r.HTML200Count,
				UnhandledErrors:     r.UnhandledErrors,
				DecompressionErrors: r.DecompressionErrors,
				LengthOKCount:       r.LengthOKCount,
				TooLongCount:        r.TooLongCount,
				LanguageOKCount:     r.LanguageOKCount,
				EntityMatchedCount:  r.EntityMatchedCount,
				ArticlesKept:        r.ArticlesKept,
			},
		}
	}
	return out, nil
}
