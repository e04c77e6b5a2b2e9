// Package decode turns raw HTTP response bodies into best-effort Unicode text.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrDecompress marks a body whose declared content-encoding could not be undone.
	ErrDecompress = errors.New("decompress body")
	// ErrUnknownCharset marks a declared charset no codec is registered for.
	ErrUnknownCharset = errors.New("unknown charset")
)

const defaultMaxBytes = 32 << 20

// DefaultAliases maps common charset misspellings to WHATWG labels.
var DefaultAliases = map[string]string{
	"utf8":         "utf-8",
	"utf_8":        "utf-8",
	"uft-8":        "utf-8",
	"latin1":       "iso-8859-1",
	"latin-1":      "iso-8859-1",
	"iso8859-1":    "iso-8859-1",
	"iso_8859_1":   "iso-8859-1",
	"iso-8859-15":  "iso-8859-15",
	"iso8859-15":   "iso-8859-15",
	"cp1252":       "windows-1252",
	"win-1252":     "windows-1252",
	"windows1252":  "windows-1252",
	"cp1251":       "windows-1251",
	"win-1251":     "windows-1251",
	"windows1251":  "windows-1251",
	"ascii":        "us-ascii",
	"us_ascii":     "us-ascii",
	"sjis":         "shift_jis",
	"shift-jis":    "shift_jis",
	"x-sjis":       "shift_jis",
	"gb2312":       "gbk",
	"euc_kr":       "euc-kr",
	"euckr":        "euc-kr",
	"big-5":        "big5",
	"x-mac-roman":  "macintosh",
	"unicode":      "utf-16le",
	"utf-16":       "utf-16le",
	"ks_c_5601":    "euc-kr",
	"koi8r":        "koi8-r",
	"iso-8859-8-i": "iso-8859-8",
}

// Config tunes a Decoder.
type Config struct {
	// Aliases normalizes declared charset names before lookup. Nil uses DefaultAliases.
	Aliases map[string]string
	// MaxBytes caps the decompressed body size. Zero uses 32 MiB.
	MaxBytes int64
}

// Decoder decompresses and decodes response bodies.
type Decoder struct {
	aliases  map[string]string
	maxBytes int64
}

// New builds a Decoder.
func New(cfg Config) *Decoder {
	aliases := cfg.Aliases
	if aliases == nil {
		aliases = DefaultAliases
	}
	normalized := make(map[string]string, len(aliases))
	for k, v := range aliases {
		normalized[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Decoder{aliases: normalized, maxBytes: maxBytes}
}

// Decode undoes contentEncoding and decodes the result using the charset
// declared in contentType. Invalid byte sequences never fail decoding; they
// are replaced. Errors wrap ErrDecompress or ErrUnknownCharset.
func (d *Decoder) Decode(body []byte, contentType, contentEncoding string) (string, error) {
	raw, err := d.decompress(body, contentEncoding)
	if err != nil {
		return "", err
	}

	charset := Charset(contentType)
	if charset == "" {
		return salvage(raw)
	}
	name := d.Canonical(charset)
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownCharset, charset)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrUnknownCharset, name, err)
	}
	return string(out), nil
}

// Canonical applies the alias table to a declared charset name.
func (d *Decoder) Canonical(charset string) string {
	name := strings.ToLower(strings.Trim(strings.TrimSpace(charset), `"'`))
	if alias, ok := d.aliases[name]; ok {
		return alias
	}
	return name
}

func (d *Decoder) decompress(body []byte, contentEncoding string) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		r, err = gzip.NewReader(bytes.NewReader(body))
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		r, err = zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			r, err = flate.NewReader(bytes.NewReader(body)), nil
		}
	default:
		return body, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecompress, contentEncoding, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecompress, contentEncoding, err)
	}
	if int64(len(out)) > d.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrDecompress, d.maxBytes)
	}
	return out, nil
}

// salvage decodes undeclared bodies as UTF-8 and falls back to Latin-1 when
// the UTF-8 pass produced replacement characters.
func salvage(raw []byte) (string, error) {
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err == nil && !bytes.ContainsRune(out, '\uFFFD') {
		return string(out), nil
	}
	latin, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: latin-1 fallback: %v", ErrUnknownCharset, err)
	}
	return string(latin), nil
}

// Charset extracts the charset parameter from a Content-Type value. When no
// ";"-separated parameter names one, the first "charset=" anywhere in the value
// is used, so malformed headers such as "text/html charset=koi8-r" still
// declare their charset.
func Charset(contentType string) string {
	for _, part := range strings.Split(contentType, ";")[1:] {
		key, value, ok := strings.Cut(part, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "charset") {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), `"'`)
	}

	i := strings.Index(strings.ToLower(contentType), "charset=")
	if i < 0 {
		return ""
	}
	value := contentType[i+len("charset="):]
	if end := strings.IndexAny(value, "; \t,"); end >= 0 {
		value = value[:end]
	}
	return strings.Trim(value, `"'`)
}
