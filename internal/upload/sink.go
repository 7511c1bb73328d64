// Package upload implements the multipart/form-data streaming sink
// spec.md §4.5 describes: a pull/push state machine fed request-body
// chunks, carrying a small tail window, that writes each file part
// straight to disk without buffering the whole body in memory.
package upload

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/albertbausili/dropgate/internal/httpwire"
)

type state int

const (
	statePreamble state = iota
	statePartHeaders
	statePartBody
	stateEpilogue
	stateMalformed
)

// Sink consumes a multipart/form-data request body incrementally,
// writing each file part to targetDir. Filename collisions overwrite,
// per spec.md §9 open-question (a).
type Sink struct {
	delim      []byte
	tailWindow int
	targetDir  string
	sizeCap    int64 // 0 = unbounded

	state    state
	buf      []byte
	received int64

	currentFile     *os.File
	currentFilename string

	writtenFiles []string
	writeFailed  bool
}

// NewSink creates a Sink for the given boundary, writing files under
// targetDir. sizeCap of 0 disables the per-request size ceiling.
func NewSink(boundary, targetDir string, sizeCap int64) *Sink {
	return &Sink{
		delim: httpwire.Delimiter(boundary),
		// Two more than the delimiter window, so a delimiter that has
		// arrived but still lacks the two bytes that classify it ("--" or
		// CRLF) is kept whole rather than flushed into the file.
		tailWindow: httpwire.TailWindowSize(boundary) + 2,
		targetDir:  targetDir,
		sizeCap:    sizeCap,
		state:      statePreamble,
	}
}

// WrittenFiles returns the destination filenames written so far.
func (s *Sink) WrittenFiles() []string { return s.writtenFiles }

// Feed advances the state machine with the next chunk of body bytes.
// Returns done=true once the terminal boundary has been consumed.
func (s *Sink) Feed(chunk []byte) (done bool, err error) {
	s.received += int64(len(chunk))
	if s.sizeCap > 0 && s.received > s.sizeCap {
		return false, fmt.Errorf("upload: body exceeds configured size limit")
	}
	s.buf = append(s.buf, chunk...)

	for {
		switch s.state {
		case statePreamble:
			res := httpwire.FindDelimiter(s.buf, s.delim, true)
			if !res.Found {
				if len(s.buf) > s.tailWindow {
					// Keep only a tail window; nothing useful before it once
					// it's this large without a delimiter in sight.
					s.buf = s.buf[len(s.buf)-s.tailWindow:]
				}
				return false, nil
			}
			if res.Final {
				s.buf = s.buf[res.NextStart:]
				s.state = stateEpilogue
				continue
			}
			s.buf = s.buf[res.NextStart:]
			s.state = statePartHeaders

		case statePartHeaders:
			end := bytes.Index(s.buf, []byte("\r\n\r\n"))
			if end == -1 {
				if len(s.buf) > 64<<10 {
					s.state = stateMalformed
					return false, fmt.Errorf("upload: part headers too large")
				}
				return false, nil
			}
			header := s.buf[:end]
			s.buf = s.buf[end+4:]
			filename, err := filenameFromDisposition(header)
			if err != nil {
				s.state = stateMalformed
				return false, err
			}
			f, err := os.OpenFile(filepath.Join(s.targetDir, filename), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
			if err != nil {
				s.writeFailed = true
				s.state = stateMalformed
				return false, fmt.Errorf("upload: open %s: %w", filename, err)
			}
			s.currentFile = f
			s.currentFilename = filename
			s.state = statePartBody

		case statePartBody:
			res := httpwire.FindDelimiter(s.buf, s.delim, false)
			if !res.Found {
				if len(s.buf) > s.tailWindow {
					flushTo := len(s.buf) - s.tailWindow
					if err := s.writeBody(s.buf[:flushTo]); err != nil {
						return false, err
					}
					s.buf = s.buf[flushTo:]
				}
				return false, nil
			}
			bodyEnd := res.Index - 2
			if bodyEnd < 0 {
				bodyEnd = 0
			}
			if err := s.writeBody(s.buf[:bodyEnd]); err != nil {
				return false, err
			}
			if err := s.closeCurrentFile(); err != nil {
				return false, err
			}
			s.buf = s.buf[res.NextStart:]
			if res.Final {
				s.state = stateEpilogue
				continue
			}
			s.state = statePartHeaders

		case stateEpilogue:
			s.buf = nil
			return true, nil

		case stateMalformed:
			return false, fmt.Errorf("upload: malformed multipart body")
		}
	}
}

// Finish is called once the declared Content-Length has been fully
// consumed. It reports an error if the terminal boundary was never seen.
func (s *Sink) Finish() error {
	if s.writeFailed {
		return fmt.Errorf("upload: one or more file writes failed")
	}
	if s.state != stateEpilogue {
		return fmt.Errorf("upload: body ended before terminal boundary")
	}
	return nil
}

func (s *Sink) writeBody(b []byte) error {
	if len(b) == 0 || s.currentFile == nil {
		return nil
	}
	if _, err := s.currentFile.Write(b); err != nil {
		s.writeFailed = true
		return fmt.Errorf("upload: write %s: %w", s.currentFilename, err)
	}
	return nil
}

func (s *Sink) closeCurrentFile() error {
	if s.currentFile == nil {
		return nil
	}
	s.writtenFiles = append(s.writtenFiles, s.currentFilename)
	err := s.currentFile.Close()
	s.currentFile = nil
	s.currentFilename = ""
	if err != nil {
		s.writeFailed = true
		return fmt.Errorf("upload: close: %w", err)
	}
	return nil
}

// filenameFromDisposition extracts, percent-decodes, and sanitizes the
// filename parameter from a part's Content-Disposition header, per
// spec.md §4.5 step 3.
func filenameFromDisposition(header []byte) (string, error) {
	lines := strings.Split(string(header), "\n")
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(strings.ToLower(line), "content-disposition:") {
			continue
		}
		name := extractParam(line, "filename")
		if name == "" {
			return "", fmt.Errorf("upload: missing filename in part")
		}
		decoded, err := httpwire.PercentDecodePath(name)
		if err != nil {
			return "", fmt.Errorf("upload: invalid filename encoding: %w", err)
		}
		decoded = filepath.Base(strings.ReplaceAll(decoded, "\\", "/"))
		if decoded == "" || decoded == "." || decoded == ".." {
			return "", fmt.Errorf("upload: invalid filename")
		}
		return decoded, nil
	}
	return "", fmt.Errorf("upload: missing Content-Disposition header")
}

func extractParam(headerLine, param string) string {
	marker := param + "=\""
	idx := strings.Index(strings.ToLower(headerLine), marker)
	if idx == -1 {
		return ""
	}
	rest := headerLine[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end == -1 {
		return ""
	}
	return rest[:end]
}
