// Package matcher attributes article text to tracked entities by name tokens.
package matcher

import (
	"sort"
	"strings"
	"unicode"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
)

// DefaultSuffixes are corporate-form tokens ignored by the repetition check.
var DefaultSuffixes = []string{
	"INC", "INCDE", "INCMD", "INCORPORATED",
	"CORP", "CORPORATION", "INTERNATIONAL", "GROUP",
	"CO", "COMPANY", "LLC", "LP", "L.P.", "LLLP", "LLP",
	"LTD", "LIMITED", "HOLDINGS", "HLDGS", "HOLDING", "PLC",
	"DE", "MD", "UT", "MO",
}

// Canonicalize keeps letters and digits and uppercases the result.
func Canonicalize(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// NameTokens splits a display name on whitespace and canonicalizes each part.
// Parts that canonicalize to nothing are dropped.
func NameTokens(name string) ccnews.TokenSet {
	out := make(ccnews.TokenSet)
	for _, part := range strings.Fields(name) {
		if tok := Canonicalize(part); tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}

// Matcher finds entities whose distinguishing name tokens repeat in a text.
type Matcher struct {
	suffixes map[string]struct{}
}

// New builds a Matcher. A nil suffix list uses DefaultSuffixes.
func New(suffixes []string) *Matcher {
	if suffixes == nil {
		suffixes = DefaultSuffixes
	}
	set := make(map[string]struct{}, len(suffixes))
	for _, s := range suffixes {
		if tok := Canonicalize(s); tok != "" {
			set[tok] = struct{}{}
		}
	}
	return &Matcher{suffixes: set}
}

// Match returns, in sorted order, the ids of every entity whose name tokens
// all occur in words and whose non-suffix tokens each occur at least twice.
func (m *Matcher) Match(words []string, nameTokens map[string]ccnews.TokenSet) []string {
	freq := make(map[string]int, len(words))
	for _, w := range words {
		if tok := Canonicalize(w); tok != "" {
			freq[tok]++
		}
	}

	var matched []string
	for id, tokens := range nameTokens {
		if m.accepts(tokens, freq) {
			matched = append(matched, id)
		}
	}
	sort.Strings(matched)
	return matched
}

func (m *Matcher) accepts(tokens ccnews.TokenSet, freq map[string]int) bool {
	if len(tokens) == 0 {
		return false
	}
	minCount := -1
	for tok := range tokens {
		n, ok := freq[tok]
		if !ok {
			return false
		}
		if _, suffix := m.suffixes[tok]; suffix {
			continue
		}
		if minCount < 0 || n < minCount {
			minCount = n
		}
	}
	// minCount stays negative when every token is a suffix.
	return minCount > 1
}
