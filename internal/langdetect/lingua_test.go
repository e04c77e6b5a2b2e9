package langdetect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New([]string{"en", "fr", "de"}, false)
	require.NoError(t, err)
	return d
}

func TestDetectEnglishUppercase(t *testing.T) {
	t.Parallel()

	text := strings.ToUpper("Shares of the company rose sharply on Tuesday after the firm reported " +
		"quarterly earnings that beat analyst expectations and raised its outlook for the year.")
	lang, conf, ok := newDetector(t).Detect(text)
	require.True(t, ok)
	assert.Equal(t, "en", lang)
	assert.GreaterOrEqual(t, conf, 0.8)
	assert.LessOrEqual(t, conf, 1.0)
}

func TestDetectFrench(t *testing.T) {
	t.Parallel()

	lang, _, ok := newDetector(t).Detect("Les actions de la société ont fortement augmenté mardi après la publication des résultats trimestriels.")
	require.True(t, ok)
	assert.Equal(t, "fr", lang)
}

func TestDetectDeterministic(t *testing.T) {
	t.Parallel()

	d := newDetector(t)
	text := "The central bank held interest rates steady and signalled patience on future moves."
	lang1, conf1, _ := d.Detect(text)
	lang2, conf2, _ := d.Detect(text)
	assert.Equal(t, lang1, lang2)
	assert.InDelta(t, conf1, conf2, 1e-12)
}

func TestDetectNoSignal(t *testing.T) {
	t.Parallel()

	d := newDetector(t)
	for _, text := range []string{"", "   ", "12345 6789 -- !!", "ab cd"} {
		_, _, ok := d.Detect(text)
		assert.False(t, ok, text)
	}
}

func TestNewValidatesCodes(t *testing.T) {
	t.Parallel()

	_, err := New([]string{"en", "xx"}, false)
	require.Error(t, err)

	_, err = New([]string{"en"}, false)
	require.Error(t, err)
}
