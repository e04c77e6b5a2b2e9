// Package warc streams records out of (optionally gzip-compressed) WARC files.
package warc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrMalformed marks a container framing error. Iteration cannot continue
// past it.
var ErrMalformed = errors.New("malformed warc record")

// ErrRecordTooLarge marks a record whose content block exceeds the cap. The
// block is skipped and the next call to Next continues with the following
// record.
var ErrRecordTooLarge = errors.New("warc record too large")

// DefaultMaxRecordBytes caps a single record's content block.
const DefaultMaxRecordBytes = 64 << 20

// Record types.
const (
	TypeResponse = "response"
	TypeRequest  = "request"
	TypeWarcinfo = "warcinfo"
	TypeMetadata = "metadata"
)

// Record is one WARC record with its content block fully buffered.
type Record struct {
	Version string
	Header  textproto.MIMEHeader
	Content []byte
}

// Type returns WARC-Type.
func (r *Record) Type() string { return r.Header.Get("WARC-Type") }

// RecordID returns WARC-Record-ID.
func (r *Record) RecordID() string { return r.Header.Get("WARC-Record-ID") }

// Date returns WARC-Date as written in the archive.
func (r *Record) Date() string { return r.Header.Get("WARC-Date") }

// TargetURI returns WARC-Target-URI.
func (r *Record) TargetURI() string { return r.Header.Get("WARC-Target-URI") }

// PayloadDigest returns WARC-Payload-Digest.
func (r *Record) PayloadDigest() string { return r.Header.Get("WARC-Payload-Digest") }

// Reader iterates records sequentially.
type Reader struct {
	br        *bufio.Reader
	tp        *textproto.Reader
	closer    io.Closer
	maxRecord int64
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxRecordBytes overrides DefaultMaxRecordBytes.
func WithMaxRecordBytes(n int64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxRecord = n
		}
	}
}

// NewReader sniffs the gzip magic and wraps src accordingly. Concatenated
// gzip members are read as one stream.
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	raw := bufio.NewReader(src)
	magic, err := raw.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("peek warc stream: %w", err)
	}

	var (
		body   io.Reader = raw
		closer io.Closer
	)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: open gzip: %v", ErrMalformed, err)
		}
		body, closer = gz, gz
	}

	br := bufio.NewReaderSize(body, 64<<10)
	r := &Reader{
		br:        br,
		tp:        textproto.NewReader(br),
		closer:    closer,
		maxRecord: DefaultMaxRecordBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (*Record, error) {
	version, err := r.versionLine()
	if err != nil {
		return nil, err
	}
	header, err := r.tp.ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	length, err := strconv.ParseInt(strings.TrimSpace(header.Get("Content-Length")), 10, 64)
	if err != nil || length < 0 {
		return nil, fmt.Errorf("%w: bad Content-Length %q", ErrMalformed, header.Get("Content-Length"))
	}
	if length > r.maxRecord {
		if _, err := io.CopyN(io.Discard, r.br, length); err != nil {
			return nil, fmt.Errorf("%w: skip oversized content: %v", ErrMalformed, err)
		}
		return nil, fmt.Errorf("%w: %s is %d bytes, cap %d",
			ErrRecordTooLarge, header.Get("WARC-Record-ID"), length, r.maxRecord)
	}
	content := make([]byte, length)
	if _, err := io.ReadFull(r.br, content); err != nil {
		return nil, fmt.Errorf("%w: read content: %v", ErrMalformed, err)
	}
	return &Record{Version: version, Header: header, Content: content}, nil
}

// versionLine skips the blank lines that close the previous record.
func (r *Reader) versionLine() (string, error) {
	for {
		line, err := r.tp.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" {
				return "", io.EOF
			}
			return "", fmt.Errorf("%w: read version: %v", ErrMalformed, err)
		}
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "WARC/") {
			return "", fmt.Errorf("%w: unexpected version line %q", ErrMalformed, truncate(line, 64))
		}
		return line, nil
	}
}

// Close releases the gzip reader, if any. It does not close the source.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	if err := r.closer.Close(); err != nil {
		return fmt.Errorf("close warc gzip: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
