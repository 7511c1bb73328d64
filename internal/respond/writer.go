package respond

import (
	"strconv"

	"github.com/albertbausili/dropgate/internal/wire"
)

var (
	crlf      = []byte("\r\n")
	continue100 = []byte("HTTP/1.1 100 Continue\r\n\r\n")
)

// Writer renders a Plan onto a wire.Buffer, streaming file bodies in
// buffer-sized chunks rather than loading them whole, per spec.md §4.4.
type Writer struct {
	buf       *wire.Buffer
	chunkSize int
}

// NewWriter wraps buf; chunkSize bounds each file-streaming read.
func NewWriter(buf *wire.Buffer, chunkSize int) *Writer {
	if chunkSize <= 0 {
		chunkSize = 32 << 10
	}
	return &Writer{buf: buf, chunkSize: chunkSize}
}

// WriteContinue emits "100 Continue" ahead of the request body, per
// spec.md §4.5 step 2. Must be called before any body byte is consumed.
func (w *Writer) WriteContinue(done func(error)) {
	w.buf.QueueWrite(append([]byte(nil), continue100...))
	_ = w.buf.Drain(done)
}

// WriteHead assembles the status line and headers (and, for small bodies,
// the body itself) and queues them for drain. For BodyFile plans the
// caller must follow with repeated StreamFileChunk calls.
func (w *Writer) WriteHead(p Plan, done func(error)) {
	head := make([]byte, 0, 256)
	head = append(head, "HTTP/1.1 "...)
	head = append(head, strconv.Itoa(p.Status)...)
	head = append(head, ' ')
	head = append(head, p.Reason...)
	head = append(head, crlf...)
	for _, h := range p.Header {
		head = append(head, h[0]...)
		head = append(head, ':', ' ')
		head = append(head, h[1]...)
		head = append(head, crlf...)
	}
	head = append(head, crlf...)

	switch p.Body.Kind {
	case BodyBytes:
		head = append(head, p.Body.Bytes...)
	case BodyDirListing:
		head = append(head, p.Body.DirHTML...)
	}

	w.buf.QueueWrite(head)
	_ = w.buf.Drain(done)
}

// StreamFileChunk reads up to chunkSize bytes from the plan's file body and
// queues them, returning done=true once the file has been fully sent (and
// closing it). The Connection FSM calls this once per writable tick.
func (w *Writer) StreamFileChunk(p *Plan, done func(error)) (finished bool, err error) {
	if p.Body.Kind != BodyFile {
		return true, nil
	}
	chunk := make([]byte, w.chunkSize)
	n, readErr := p.Body.File.Read(chunk)
	if n > 0 {
		w.buf.QueueWrite(chunk[:n])
		_ = w.buf.Drain(done)
	}
	if readErr != nil {
		_ = p.Body.File.Close()
		return true, nil
	}
	return false, nil
}
