package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Corp.":   "CORP",
		"AT&T":    "ATT",
		"3M,":     "3M",
		"---":     "",
		"l'oréal": "LORÉAL",
		"(Alpha)": "ALPHA",
		"":        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Canonicalize(in), in)
	}
}

func TestNameTokensDropsEmptyParts(t *testing.T) {
	t.Parallel()

	got := NameTokens("Acme  Holdings, Inc. &")
	assert.Equal(t, ccnews.TokenSet{"ACME": {}, "HOLDINGS": {}, "INC": {}}, got)
	assert.Empty(t, NameTokens(" - & "))
}

func TestMatchRequiresRepeatedDistinguishingTokens(t *testing.T) {
	t.Parallel()

	m := New(nil)
	names := map[string]ccnews.TokenSet{
		"0001": NameTokens("ACME HOLDINGS INC"),
		"0002": NameTokens("GLOBEX CORP"),
		"0003": NameTokens("INITECH SOFTWARE INC"),
	}

	words := strings.Fields("Acme, Holdings Inc. said Acme results beat. Globex Corp declined. Initech software initech")
	got := m.Match(words, names)
	// ACME appears twice; HOLDINGS and INC are suffixes. GLOBEX appears once.
	// INITECH repeats but SOFTWARE appears once.
	assert.Equal(t, []string{"0001"}, got)
}

func TestMatchNeedsEveryTokenPresent(t *testing.T) {
	t.Parallel()

	m := New(nil)
	names := map[string]ccnews.TokenSet{"1": NameTokens("Umbrella Corp")}
	assert.Empty(t, m.Match(strings.Fields("umbrella umbrella umbrella"), names))
	assert.Equal(t, []string{"1"}, m.Match(strings.Fields("umbrella corp umbrella"), names))
}

func TestMatchSkipsSuffixOnlyAndEmptyNames(t *testing.T) {
	t.Parallel()

	m := New(nil)
	names := map[string]ccnews.TokenSet{
		"suffix-only": NameTokens("Holdings Inc"),
		"empty":       {},
	}
	assert.Empty(t, m.Match(strings.Fields("holdings inc holdings inc"), names))
}

func TestMatchCustomSuffixes(t *testing.T) {
	t.Parallel()

	m := New([]string{"L.P."})
	names := map[string]ccnews.TokenSet{"7": NameTokens("Blackrock L.P.")}
	got := m.Match(strings.Fields("Blackrock LP said Blackrock"), names)
	require.Equal(t, []string{"7"}, got)
}

func TestMatchSortsIDs(t *testing.T) {
	t.Parallel()

	m := New(nil)
	names := map[string]ccnews.TokenSet{
		"b": NameTokens("Beta"),
		"a": NameTokens("Alpha"),
		"c": NameTokens("Gamma"),
	}
	got := m.Match(strings.Fields("alpha beta gamma alpha beta gamma"), names)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
