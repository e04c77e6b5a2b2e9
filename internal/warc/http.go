package warc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/textproto"
	"strconv"
	"strings"
)

// HTTPResponse parses the content block of a response record the way archive
// tooling does: any HTTP/x protocol token is accepted, header lines without a
// colon are skipped and header names are trimmed. The body is de-chunked when
// it is chunked but never decompressed.
func (r *Record) HTTPResponse() (*http.Response, error) {
	br := bufio.NewReader(bytes.NewReader(r.Content))

	statusLine, _ := readLine(br)
	resp, err := parseStatusLine(statusLine)
	if err != nil {
		return nil, fmt.Errorf("parse http response in %s: %w", r.RecordID(), err)
	}
	resp.Header = readHeader(br)

	body, _ := io.ReadAll(br) // reading from memory
	if isChunked(resp.Header) {
		if plain, err := io.ReadAll(httputil.NewChunkedReader(bytes.NewReader(body))); err == nil {
			body = plain
		}
	}
	resp.ContentLength = int64(len(body))
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func parseStatusLine(line string) (*http.Response, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(strings.ToUpper(fields[0]), "HTTP/") {
		return nil, fmt.Errorf("malformed status line %q", truncate(line, 64))
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil || code < 100 || code > 999 {
		return nil, fmt.Errorf("malformed status code %q", truncate(fields[1], 16))
	}
	major, minor := protoVersion(fields[0])
	return &http.Response{
		Status:     strings.Join(fields[1:], " "),
		StatusCode: code,
		Proto:      fields[0],
		ProtoMajor: major,
		ProtoMinor: minor,
	}, nil
}

// protoVersion reads "HTTP/1.1" or "HTTP/2"; anything else reads as 1.1.
func protoVersion(proto string) (int, int) {
	version := proto[len("HTTP/"):]
	majorStr, minorStr, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return 1, 1
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		minor = 0
	}
	return major, minor
}

// readHeader consumes header lines up to the first blank line or the end of
// the block. Folded lines continue the previous value.
func readHeader(br *bufio.Reader) http.Header {
	header := make(http.Header)
	var last string
	for {
		line, err := readLine(br)
		if line == "" {
			return header
		}
		switch {
		case line[0] == ' ' || line[0] == '\t':
			if vals := header[last]; len(vals) > 0 {
				vals[len(vals)-1] = strings.TrimSpace(vals[len(vals)-1] + " " + strings.TrimSpace(line))
			}
		default:
			name, value, ok := strings.Cut(line, ":")
			name = strings.TrimSpace(name)
			if ok && name != "" {
				last = textproto.CanonicalMIMEHeaderKey(name)
				header.Add(last, strings.TrimSpace(value))
			}
		}
		if err != nil {
			return header
		}
	}
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err //nolint:wrapcheck
	}
	line = strings.TrimRight(line, "\r\n")
	if err != nil {
		return line, io.EOF
	}
	return line, nil
}

func isChunked(h http.Header) bool {
	for _, te := range h.Values("Transfer-Encoding") {
		if strings.Contains(strings.ToLower(te), "chunked") {
			return true
		}
	}
	return false
}
