// Package warctest builds WARC fixtures for tests.
package warctest

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Record describes one record to write.
type Record struct {
	Type      string
	TargetURI string
	Date      string
	Header    map[string]string
	Content   []byte
}

// HTTPResponse renders a minimal HTTP/1.1 response block.
func HTTPResponse(status int, headers map[string]string, body []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(body))
	b.Write(body)
	return b.Bytes()
}

// HTMLResponse is a 200 text/html response carrying page.
func HTMLResponse(page string) []byte {
	return HTTPResponse(http.StatusOK, map[string]string{"Content-Type": "text/html; charset=utf-8"}, []byte(page))
}

// Plain renders records without compression.
func Plain(records ...Record) []byte {
	var b bytes.Buffer
	for i, rec := range records {
		writeRecord(&b, i, rec)
	}
	return b.Bytes()
}

// Gzip renders each record as its own gzip member, the layout used by
// Common Crawl.
func Gzip(records ...Record) []byte {
	var out bytes.Buffer
	for i, rec := range records {
		var b bytes.Buffer
		writeRecord(&b, i, rec)
		zw := gzip.NewWriter(&out)
		_, _ = zw.Write(b.Bytes())
		_ = zw.Close()
	}
	return out.Bytes()
}

func writeRecord(b *bytes.Buffer, i int, rec Record) {
	recType := rec.Type
	if recType == "" {
		recType = "response"
	}
	date := rec.Date
	if date == "" {
		date = "2020-03-02T14:30:00Z"
	}
	b.WriteString("WARC/1.0\r\n")
	fmt.Fprintf(b, "WARC-Type: %s\r\n", recType)
	fmt.Fprintf(b, "WARC-Record-ID: <urn:uuid:00000000-0000-0000-0000-%012d>\r\n", i)
	fmt.Fprintf(b, "WARC-Date: %s\r\n", date)
	if rec.TargetURI != "" {
		fmt.Fprintf(b, "WARC-Target-URI: %s\r\n", rec.TargetURI)
	}
	fmt.Fprintf(b, "WARC-Payload-Digest: sha1:%s\r\n", strings.Repeat("A", 32))
	keys := make([]string, 0, len(rec.Header))
	for k := range rec.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %s\r\n", k, rec.Header[k])
	}
	if recType == "response" {
		b.WriteString("Content-Type: application/http; msgtype=response\r\n")
	}
	fmt.Fprintf(b, "Content-Length: %d\r\n\r\n", len(rec.Content))
	b.Write(rec.Content)
	b.WriteString("\r\n\r\n")
}
