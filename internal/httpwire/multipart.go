package httpwire

import "bytes"

// Delimiter returns the boundary marker bytes ("--" + boundary) a
// multipart/form-data body delimits parts with, per RFC 7578.
func Delimiter(boundary string) []byte {
	return append([]byte("--"), boundary...)
}

// FindResult reports what FindDelimiter located in buf.
type FindResult struct {
	Found     bool
	Final     bool // delimiter is immediately followed by "--" (terminal boundary)
	Index     int  // index in buf where the delimiter's leading "--" begins
	NextStart int  // index just past the delimiter line's trailing CRLF (or just past the trailing "--" if Final)
}

// FindDelimiter searches buf for the next boundary delimiter. atStart
// indicates buf begins at the very start of the multipart body (where the
// first delimiter has no leading CRLF); otherwise the delimiter is sought
// as "\r\n" + delim. This mirrors spec.md §4.2's "\r\n--<boundary>" /
// "\r\n--<boundary>--" scan.
func FindDelimiter(buf, delim []byte, atStart bool) FindResult {
	pattern := append([]byte("\r\n"), delim...)
	searchFrom := 0
	if atStart && bytes.HasPrefix(buf, delim) {
		return classifyDelimiterAt(buf, 0, len(delim))
	}
	idx := bytes.Index(buf[searchFrom:], pattern)
	if idx == -1 {
		return FindResult{Found: false}
	}
	start := searchFrom + idx + 2 // skip the leading CRLF, point at "--"
	return classifyDelimiterAt(buf, start, len(delim))
}

func classifyDelimiterAt(buf []byte, start, delimLen int) FindResult {
	end := start + delimLen
	if end+2 <= len(buf) && buf[end] == '-' && buf[end+1] == '-' {
		return FindResult{Found: true, Final: true, Index: start, NextStart: end + 2}
	}
	// Need enough bytes to know whether "--" follows; if not, caller should
	// wait for more data before trusting a non-final classification.
	if end+2 > len(buf) {
		return FindResult{Found: false}
	}
	// Non-final: delimiter line ends with CRLF.
	next := end
	if next+2 <= len(buf) && buf[next] == '\r' && buf[next+1] == '\n' {
		next += 2
	}
	return FindResult{Found: true, Final: false, Index: start, NextStart: next}
}

// TailWindowSize returns the number of trailing bytes a streaming scanner
// must retain across feeds to guarantee a delimiter split across two reads
// is still detected, per spec.md §4.2: |boundary|+4 (for "\r\n--").
// FindDelimiter reports a match only once the two bytes after the delimiter
// are also present, so a caller that flushes data must keep two more.
func TailWindowSize(boundary string) int {
	return len(boundary) + 4
}
