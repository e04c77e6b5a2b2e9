package dedup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
	"github.com/JakeFAU/ccnews-ingest/internal/hash/sha1"
)

type failingHasher struct{}

func (failingHasher) Hash([]byte) (string, error) { return "", errors.New("boom") }

func article(source, text string) ccnews.ArticleRecord {
	return ccnews.ArticleRecord{
		SourceURI:   source,
		TradingDate: "2020-03-02",
		Session:     ccnews.SessionIntraday,
		Text:        text,
		EntityIDs:   []string{"1"},
	}
}

func TestArticleIDIsPureFunction(t *testing.T) {
	t.Parallel()

	d := New(sha1.New())
	id, err := d.ArticleID("2020-03-02", ccnews.SessionIntraday, "ACME WIDGETS INC")
	require.NoError(t, err)
	assert.Equal(t, "fc6bd2d8bc888282eb3d3b988efd3be98c1349f4", id)

	again, err := d.ArticleID("2020-03-02", ccnews.SessionIntraday, "ACME WIDGETS INC")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	for _, other := range [][3]string{
		{"2020-03-03", "intraday", "ACME WIDGETS INC"},
		{"2020-03-02", "overnight", "ACME WIDGETS INC"},
		{"2020-03-02", "intraday", "ACME WIDGETS INC."},
	} {
		changed, err := d.ArticleID(other[0], ccnews.Session(other[1]), other[2])
		require.NoError(t, err)
		assert.NotEqual(t, id, changed, other)
	}
}

func TestDedupAcrossSamples(t *testing.T) {
	t.Parallel()

	results := []ccnews.SampleResult{
		{SampleURI: "a", Articles: []ccnews.ArticleRecord{article("a", "SAME TEXT"), article("a", "OTHER")}},
		{SampleURI: "b", Articles: []ccnews.ArticleRecord{article("b", "SAME TEXT")}},
	}
	d := New(sha1.New())

	out, err := d.Dedup(Collect(results))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].SourceURI, "first occurrence wins")
	assert.Equal(t, "SAME TEXT", out[0].Text)
	assert.Equal(t, "OTHER", out[1].Text)
	for _, a := range out {
		assert.Len(t, a.ArticleID, 40)
	}
	assert.Empty(t, results[0].Articles[0].ArticleID, "input is not mutated")

	again, err := d.Dedup(out)
	require.NoError(t, err)
	assert.Equal(t, out, again, "dedup is idempotent")
}

func TestDedupEmpty(t *testing.T) {
	t.Parallel()

	out, err := New(sha1.New()).Dedup(Collect(nil))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDedupHashError(t *testing.T) {
	t.Parallel()

	_, err := New(failingHasher{}).Dedup([]ccnews.ArticleRecord{article("a", "x")})
	require.ErrorContains(t, err, "boom")
}
