// Package langdetect identifies the language of article text with lingua.
package langdetect

import (
	"fmt"
	"strings"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minLetters is the fewest letters worth running detection on.
const minLetters = 6

// Detector wraps a lingua detector. It is safe for concurrent use.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over the given ISO 639-1 codes. An empty list uses
// every language lingua ships. Models load lazily unless preload is set.
func New(codes []string, preload bool) (*Detector, error) {
	builder, err := builderFor(codes)
	if err != nil {
		return nil, err
	}
	if preload {
		builder = builder.WithPreloadedLanguageModels()
	}
	return &Detector{detector: builder.Build()}, nil
}

func builderFor(codes []string) (lingua.LanguageDetectorBuilder, error) {
	if len(codes) == 0 {
		return lingua.NewLanguageDetectorBuilder().FromAllLanguages(), nil
	}
	languages := make([]lingua.Language, 0, len(codes))
	for _, code := range codes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(code)))
		lang := lingua.GetLanguageFromIsoCode639_1(iso)
		if lang == lingua.Unknown {
			return nil, fmt.Errorf("unsupported language code %q", code)
		}
		languages = append(languages, lang)
	}
	if len(languages) < 2 {
		return nil, fmt.Errorf("at least two languages are required, got %d", len(languages))
	}
	return lingua.NewLanguageDetectorBuilder().FromLanguages(languages...), nil
}

// Detect returns the most likely language as a lowercase ISO 639-1 code and
// its confidence. ok is false when the text carries no usable signal.
func (d *Detector) Detect(text string) (string, float64, bool) {
	sample := strings.TrimSpace(text)
	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
		return "", 0, false
	}

	values := d.detector.ComputeLanguageConfidenceValues(sample)
	if len(values) == 0 || values[0].Value() <= 0 {
		return "", 0, false
	}
	top := values[0]
	code := strings.ToLower(top.Language().IsoCode639_1().String())
	return code, top.Value(), true
}
