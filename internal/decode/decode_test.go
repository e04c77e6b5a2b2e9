package decode

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func gzipBytes(t *testing.T, in []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(in)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeCharsets(t *testing.T) {
	t.Parallel()

	latin, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("café société"))
	require.NoError(t, err)
	cp1252, err := charmap.Windows1252.NewEncoder().Bytes([]byte("“quoted”"))
	require.NoError(t, err)

	tests := []struct {
		name        string
		body        []byte
		contentType string
		want        string
	}{
		{name: "declared utf-8", body: []byte("naïve"), contentType: "text/html; charset=UTF-8", want: "naïve"},
		{name: "alias latin1", body: latin, contentType: "text/html; charset=latin1", want: "café société"},
		{name: "alias cp1252 quoted", body: cp1252, contentType: `text/html; charset="cp1252"`, want: "“quoted”"},
		{name: "undeclared utf-8", body: []byte("plain ✓"), contentType: "text/html", want: "plain ✓"},
		{name: "undeclared latin-1 salvage", body: latin, contentType: "text/html", want: "café société"},
		{name: "declared utf-8 invalid replaced", body: []byte{'a', 0xff, 'b'}, contentType: "text/html;charset=utf-8", want: "a\uFFFDb"},
	}
	d := New(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := d.Decode(tt.body, tt.contentType, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeUnknownCharset(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}).Decode([]byte("x"), "text/html; charset=klingon-8", "")
	require.ErrorIs(t, err, ErrUnknownCharset)
}

func TestDecodeCompression(t *testing.T) {
	t.Parallel()

	html := []byte("<html><body>compressed</body></html>")

	var zbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	_, err := zw.Write(html)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var fbuf bytes.Buffer
	fw, err := flate.NewWriter(&fbuf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write(html)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	d := New(Config{})
	for name, tc := range map[string]struct {
		body     []byte
		encoding string
	}{
		"gzip":        {gzipBytes(t, html), "gzip"},
		"x-gzip":      {gzipBytes(t, html), "X-GZIP"},
		"zlib":        {zbuf.Bytes(), "deflate"},
		"raw deflate": {fbuf.Bytes(), "deflate"},
		"identity":    {html, "identity"},
	} {
		got, err := d.Decode(tc.body, "text/html; charset=utf-8", tc.encoding)
		require.NoError(t, err, name)
		assert.Equal(t, string(html), got, name)
	}
}

func TestDecodeCorruptGzip(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}).Decode([]byte("not gzip at all"), "text/html", "gzip")
	require.ErrorIs(t, err, ErrDecompress)
}

func TestDecodeSizeCap(t *testing.T) {
	t.Parallel()

	body := gzipBytes(t, bytes.Repeat([]byte("a"), 2048))
	_, err := New(Config{MaxBytes: 1024}).Decode(body, "text/html", "gzip")
	require.ErrorIs(t, err, ErrDecompress)
}

func TestCharset(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "utf-8", Charset("text/html; charset=utf-8"))
	assert.Equal(t, "ISO-8859-1", Charset(`text/html; foo=bar; Charset="ISO-8859-1"`))
	assert.Equal(t, "", Charset("text/html"))
	assert.Equal(t, "", Charset(""))
	assert.Equal(t, "windows-1251", Charset("text/html charset=windows-1251"))
	assert.Equal(t, "koi8-r", Charset("text/html,charset=koi8-r; q=1"))
	assert.Equal(t, "utf-8", Charset(`text/html CHARSET="utf-8"`))
}

func TestDecodeMalformedContentTypeCharset(t *testing.T) {
	t.Parallel()

	// 0xCF 0xF0 0xE8 0xE2 0xE5 0xF2 is "Привет" in windows-1251.
	body := []byte{0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2}
	out, err := New(Config{}).Decode(body, "text/html charset=windows-1251", "")
	require.NoError(t, err)
	assert.Equal(t, "Привет", out)
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	d := New(Config{Aliases: map[string]string{"Weird": "UTF-8"}})
	assert.Equal(t, "utf-8", d.Canonical(" weird "))
	assert.Equal(t, "koi8-r", d.Canonical("KOI8-R"))
}
