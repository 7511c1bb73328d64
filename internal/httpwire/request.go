// Package httpwire implements the incremental HTTP/1.1 request-line and
// header parser, the percent-decoder, and the multipart boundary scanner
// spec.md §4.2 describes. It is restartable across buffer fills: ParseHead
// is handed whatever bytes are currently peeked from the wire and reports
// either a complete Request plus the number of bytes consumed, or that more
// data is needed.
package httpwire

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Method classification per spec.md §3.
const (
	MethodGet   = "GET"
	MethodHead  = "HEAD"
	MethodPost  = "POST"
	MethodOther = ""
)

// Header is a case-insensitive mapping from header name to a single value.
// Repeated headers are comma-joined per RFC 7230 §3.2.2.
type Header map[string]string

// Get returns the header value for name, case-insensitively.
func (h Header) Get(name string) string {
	return h[strings.ToLower(name)]
}

func (h Header) add(name, value string) {
	key := strings.ToLower(name)
	if existing, ok := h[key]; ok {
		h[key] = existing + ", " + value
	} else {
		h[key] = value
	}
}

// Request is the parsed head of one HTTP message. Immutable once returned
// by ParseHead.
type Request struct {
	Method    string
	RawTarget string
	Path      string // percent-decoded, query stripped
	Query     string
	Version   string
	Headers   Header

	ContentLength     int64 // -1 when absent
	ContentType       string
	ContentTypeParams map[string]string
	Expect100Continue bool
	ConnectionClose   bool
}

// errNeedMore signals the parser needs more bytes to make progress; it is
// not a protocol error.
var errNeedMore = fmt.Errorf("httpwire: need more data")

// IsNeedMore reports whether err is the internal "need more data" signal.
func IsNeedMore(err error) bool { return err == errNeedMore }

// ParseHead parses a request-line + headers block terminated by CRLFCRLF
// (bare LF tolerated) from buf. It returns the parsed Request and the
// number of bytes consumed from buf, or (nil, 0, errNeedMore) if buf does
// not yet contain a complete head, or (nil, 0, err) on a protocol error
// that should become a 400 response.
func ParseHead(buf []byte) (*Request, int, error) {
	end := findHeaderEnd(buf)
	if end == -1 {
		return nil, 0, errNeedMore
	}

	lines, err := splitLines(buf[:end])
	if err != nil {
		return nil, 0, err
	}
	if len(lines) == 0 {
		return nil, 0, fmt.Errorf("empty request")
	}

	req, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, 0, err
	}

	req.Headers = make(Header, len(lines)-1)
	req.ContentLength = -1
	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return nil, 0, fmt.Errorf("malformed header line")
		}
		name := strings.TrimSpace(string(line[:colon]))
		value := strings.TrimSpace(string(line[colon+1:]))
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, 0, fmt.Errorf("invalid header name %q", name)
		}
		if !isASCII(name) {
			return nil, 0, fmt.Errorf("non-ASCII header name")
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, 0, fmt.Errorf("invalid header value for %q", name)
		}
		req.Headers.add(name, value)
	}

	if cl := req.Headers.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, 0, fmt.Errorf("invalid Content-Length")
		}
		req.ContentLength = n
	}
	if ct := req.Headers.Get("Content-Type"); ct != "" {
		mediaType, params := parseContentType(ct)
		req.ContentType = mediaType
		req.ContentTypeParams = params
	}
	if expect := req.Headers.Get("Expect"); strings.EqualFold(expect, "100-continue") {
		req.Expect100Continue = true
	}
	if conn := req.Headers.Get("Connection"); strings.Contains(strings.ToLower(conn), "close") {
		req.ConnectionClose = true
	}

	return req, end, nil
}

func parseRequestLine(line []byte) (*Request, error) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed request line")
	}
	method := string(parts[0])
	if !isValidToken(method) {
		return nil, fmt.Errorf("invalid method %q", method)
	}

	rawTarget := string(parts[1])
	if bytes.IndexByte(parts[1], 0) != -1 {
		return nil, fmt.Errorf("NUL byte in target")
	}

	version := string(parts[2])
	if version != "HTTP/1.1" && version != "HTTP/1.0" {
		return nil, fmt.Errorf("unsupported version %q", version)
	}

	path, query, ok := splitTarget(rawTarget)
	if !ok {
		return nil, fmt.Errorf("malformed request target")
	}
	decodedPath, err := PercentDecodePath(path)
	if err != nil {
		return nil, err
	}

	return &Request{
		Method:    method,
		RawTarget: rawTarget,
		Path:      decodedPath,
		Query:     query,
		Version:   version,
	}, nil
}

func splitTarget(target string) (path, query string, ok bool) {
	if target == "" {
		return "", "", false
	}
	if i := strings.IndexByte(target, '?'); i != -1 {
		return target[:i], target[i+1:], true
	}
	return target, "", true
}

// PercentDecodePath decodes %HH sequences in an HTTP path segment. Unlike
// query-string decoding, '+' is NOT decoded to space here. Rejects NUL.
func PercentDecodePath(path string) (string, error) {
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '%' {
			if i+2 >= len(path) {
				return "", fmt.Errorf("truncated percent-escape")
			}
			hi, okHi := hexVal(path[i+1])
			lo, okLo := hexVal(path[i+2])
			if !okHi || !okLo {
				return "", fmt.Errorf("invalid percent-escape")
			}
			b := byte(hi<<4 | lo)
			if b == 0 {
				return "", fmt.Errorf("NUL byte in path")
			}
			out = append(out, b)
			i += 2
			continue
		}
		if c == 0 {
			return "", fmt.Errorf("NUL byte in path")
		}
		out = append(out, c)
	}
	return string(out), nil
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

func isValidToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !httpguts.IsTokenRune(rune(s[i])) {
			return false
		}
	}
	return true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// findHeaderEnd locates the end of the request head (index just past the
// blank line terminator), tolerating bare LF line endings.
func findHeaderEnd(buf []byte) int {
	if i := bytes.Index(buf, []byte("\r\n\r\n")); i != -1 {
		return i + 4
	}
	// Tolerate bare-LF terminated heads entirely (no \r anywhere before the end).
	if i := bytes.Index(buf, []byte("\n\n")); i != -1 && !bytes.Contains(buf[:i+2], []byte("\r\n")) {
		return i + 2
	}
	return -1
}

// splitLines splits a header block into lines, tolerating bare LF.
func splitLines(block []byte) ([][]byte, error) {
	var lines [][]byte
	start := 0
	for i := 0; i < len(block); i++ {
		if block[i] == '\n' {
			end := i
			if end > start && block[end-1] == '\r' {
				end--
			}
			lines = append(lines, block[start:end])
			start = i + 1
		}
	}
	if start < len(block) {
		lines = append(lines, block[start:])
	}
	return lines, nil
}

// parseContentType splits a Content-Type value into its media type and
// parameters (e.g. boundary=...), lower-casing the media type and the
// parameter names but not the parameter values.
func parseContentType(v string) (string, map[string]string) {
	parts := strings.Split(v, ";")
	mediaType := strings.ToLower(strings.TrimSpace(parts[0]))
	params := make(map[string]string)
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.Trim(strings.TrimSpace(kv[1]), `"`)
		params[key] = val
	}
	return mediaType, params
}

// SortedHeaderNames returns header names sorted for deterministic logging.
func (r *Request) SortedHeaderNames() []string {
	names := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
