// Package dedup assigns content fingerprints to articles and collapses
// duplicates within a (date, session) slice.
package dedup

import (
	"fmt"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
)

// Deduplicator fingerprints articles with a Hasher.
type Deduplicator struct {
	hasher ccnews.Hasher
}

// New wraps a Hasher.
func New(hasher ccnews.Hasher) *Deduplicator {
	return &Deduplicator{hasher: hasher}
}

// ArticleID fingerprints trading date, session, and text.
func (d *Deduplicator) ArticleID(tradingDate string, session ccnews.Session, text string) (string, error) {
	id, err := d.hasher.Hash([]byte(tradingDate + "|" + string(session) + "|" + text))
	if err != nil {
		return "", fmt.Errorf("hash article: %w", err)
	}
	return id, nil
}

// Collect flattens sample results in sample order.
func Collect(results []ccnews.SampleResult) []ccnews.ArticleRecord {
	var n int
	for _, r := range results {
		n += len(r.Articles)
	}
	out := make([]ccnews.ArticleRecord, 0, n)
	for _, r := range results {
		out = append(out, r.Articles...)
	}
	return out
}

// Dedup assigns ArticleID to every article and keeps the first article for
// each id. The input slice is not modified.
func (d *Deduplicator) Dedup(articles []ccnews.ArticleRecord) ([]ccnews.ArticleRecord, error) {
	seen := make(map[string]struct{}, len(articles))
	out := make([]ccnews.ArticleRecord, 0, len(articles))
	for _, a := range articles {
		id, err := d.ArticleID(a.TradingDate, a.Session, a.Text)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		a.ArticleID = id
		out = append(out, a)
	}
	return out, nil
}
