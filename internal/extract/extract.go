// Package extract locates the most article-like subtree of an HTML document
// and reduces it to normalized uppercase ASCII text.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Default selector lists, evaluated in order.
var (
	DefaultRootSelectors = []string{
		"article",
		"main",
		"[role=main]",
		"[itemprop=articleBody]",
		"#content",
		".content",
		"body",
	}
	DefaultBodySelectors = []string{
		"[itemprop=articleBody]",
		".article-body",
		".article-content",
		".story-body",
		".entry-content",
		".post-content",
		"div",
		"section",
		"p",
	}
	DefaultNonVisibleTags = []string{"style", "script", "head", "title", "meta", "link", "svg"}
)

// DefaultMinWords is the shortest candidate accepted as an article body.
const DefaultMinWords = 25

// Config lists the selectors and thresholds used by an Extractor.
type Config struct {
	RootSelectors  []string
	BodySelectors  []string
	NonVisibleTags []string
	MinWords       int
}

// Extractor turns HTML into visible article text.
type Extractor struct {
	roots      []cascadia.Selector
	bodies     []cascadia.Selector
	nonVisible cascadia.Selector
	minWords   int
}

// New compiles the configured selectors. Empty lists fall back to the defaults.
func New(cfg Config) (*Extractor, error) {
	rootSelectors := orDefault(cfg.RootSelectors, DefaultRootSelectors)
	bodySelectors := orDefault(cfg.BodySelectors, DefaultBodySelectors)
	tags := orDefault(cfg.NonVisibleTags, DefaultNonVisibleTags)

	roots, err := compile(rootSelectors)
	if err != nil {
		return nil, fmt.Errorf("root selectors: %w", err)
	}
	bodies, err := compile(bodySelectors)
	if err != nil {
		return nil, fmt.Errorf("body selectors: %w", err)
	}
	nonVisible, err := cascadia.Compile(strings.Join(tags, ","))
	if err != nil {
		return nil, fmt.Errorf("non-visible tags: %w", err)
	}
	minWords := cfg.MinWords
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &Extractor{
		roots:      roots,
		bodies:     bodies,
		nonVisible: nonVisible,
		minWords:   minWords,
	}, nil
}

// Extract returns the first root/body combination whose visible text reaches
// the minimum word count. ok is false when no candidate qualifies.
func (e *Extractor) Extract(html string) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	for _, rootSel := range e.roots {
		root := longest(doc.FindMatcher(rootSel))
		if root == nil {
			continue
		}
		for _, bodySel := range e.bodies {
			body := longest(root.FindMatcher(bodySel))
			if body == nil {
				continue
			}
			if text, ok := e.visibleText(body); ok {
				return text, true
			}
		}
	}
	return "", false
}

func (e *Extractor) visibleText(sel *goquery.Selection) (string, bool) {
	clone := sel.Clone()
	clone.FindMatcher(e.nonVisible).Remove()
	collapsed := strings.Fields(clone.Text())
	if len(collapsed) < e.minWords {
		return "", false
	}
	return Normalize(strings.Join(collapsed, " ")), true
}

// Normalize drops characters outside printable ASCII, collapses whitespace,
// and uppercases.
func Normalize(s string) string {
	ascii, _, err := transform.String(runes.Remove(runes.Predicate(nonPrintableASCII)), s)
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.Join(strings.Fields(ascii), " "))
}

func nonPrintableASCII(r rune) bool {
	return r < 0x20 || r > 0x7e
}

func longest(matches *goquery.Selection) *goquery.Selection {
	var (
		best    *goquery.Selection
		bestLen = -1
	)
	matches.Each(func(_ int, s *goquery.Selection) {
		if n := len(s.Text()); n > bestLen {
			best, bestLen = s, n
		}
	})
	return best
}

func compile(selectors []string) ([]cascadia.Selector, error) {
	out := make([]cascadia.Selector, 0, len(selectors))
	for _, raw := range selectors {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		sel, err := cascadia.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", raw, err)
		}
		out = append(out, sel)
	}
	return out, nil
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
