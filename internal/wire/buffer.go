// Package wire adapts a gnet.Conn's internal ring buffers to the fixed
// capacity read/write semantics spec.md §4.1 names: fill_from_socket,
// peek/consume on the read side, drain_to_socket on the write side. gnet
// already maintains non-blocking per-connection ring buffers; Buffer's job
// is to expose exactly the operations the HTTP parser and response path
// need, and to enforce the capacity invariant (spec.md §3 invariant e) so
// a connection that never makes progress fails instead of growing without
// bound.
package wire

import (
	"errors"
	"io"

	"github.com/panjf2000/gnet/v2"
)

// ErrNoProgress is returned by Peek when the buffered-but-unconsumed data
// already exceeds Capacity and the caller asks for more than Capacity bytes
// of it. Peek judges by size alone, not by content; callers that find no
// complete unit within a full buffer return it themselves.
var ErrNoProgress = errors.New("wire: buffer full without making progress")

// Buffer wraps a gnet.Conn, tracking byte counters and exposing the
// read/write primitives the Connection FSM drives.
type Buffer struct {
	conn     gnet.Conn
	capacity int

	bytesRead    int64
	bytesWritten int64

	pending  [][]byte // queued but not yet handed to AsyncWritev
	inflight bool     // an AsyncWritev callback hasn't fired yet
	queued   [][]byte // writes queued while inflight
}

// New wraps conn with a ring buffer of the given per-direction capacity.
func New(conn gnet.Conn, capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 64 << 10
	}
	return &Buffer{conn: conn, capacity: capacity}
}

// Capacity returns the fixed per-direction buffer capacity.
func (b *Buffer) Capacity() int { return b.capacity }

// BytesRead returns the cumulative bytes consumed from the socket.
func (b *Buffer) BytesRead() int64 { return b.bytesRead }

// BytesWritten returns the cumulative bytes drained to the socket.
func (b *Buffer) BytesWritten() int64 { return b.bytesWritten }

// Buffered returns the number of bytes currently readable without a new
// socket read, mirroring fill_from_socket's "readable" notion.
func (b *Buffer) Buffered() int {
	return b.conn.InboundBuffered()
}

// Peek returns up to n unconsumed bytes without advancing the read
// position. n may be -1 to peek everything currently buffered. Returns
// ErrNoProgress if the buffered amount already exceeds Capacity and the
// caller still needs more bytes than that to make progress.
func (b *Buffer) Peek(n int) ([]byte, error) {
	buffered := b.conn.InboundBuffered()
	if buffered > b.capacity && (n < 0 || n > b.capacity) {
		return nil, ErrNoProgress
	}
	buf, err := b.conn.Peek(n)
	if err != nil && !errors.Is(err, io.ErrShortBuffer) {
		return buf, err
	}
	return buf, nil
}

// Consume advances the read position by n bytes, the counterpart to Peek.
func (b *Buffer) Consume(n int) error {
	discarded, err := b.conn.Discard(n)
	b.bytesRead += int64(discarded)
	return err
}

// Next is Peek(n) followed by an implicit Consume(len(result)); it is the
// common case when the caller has already decided how many bytes to take.
func (b *Buffer) Next(n int) ([]byte, error) {
	buf, err := b.conn.Next(n)
	b.bytesRead += int64(len(buf))
	return buf, err
}

// QueueWrite appends chunk to the pending write queue without flushing.
// The caller retains no reference to chunk after this call; Buffer may
// hold onto the slice until the socket accepts it.
func (b *Buffer) QueueWrite(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.pending = append(b.pending, chunk)
}

// Drain hands all pending writes to the socket via a single vectored,
// non-blocking write, invoking done (if non-nil) once the OS has accepted
// every queued byte. Drain never blocks: gnet's AsyncWritev queues the
// data internally and the event loop drains it across future writable
// ticks.
func (b *Buffer) Drain(done func(err error)) error {
	if b.inflight {
		if len(b.pending) > 0 {
			b.queued = append(b.queued, b.pending...)
			b.pending = nil
		}
		return nil
	}

	batch := b.pending
	b.pending = nil
	if len(batch) == 0 {
		if done != nil {
			done(nil)
		}
		return nil
	}

	for _, chunk := range batch {
		b.bytesWritten += int64(len(chunk))
	}

	b.inflight = true
	return b.conn.AsyncWritev(batch, func(_ gnet.Conn, err error) error {
		b.inflight = false
		if len(b.queued) > 0 {
			next := b.queued
			b.queued = nil
			b.pending = append(b.pending, next...)
			_ = b.Drain(done)
			return nil
		}
		if done != nil {
			done(err)
		}
		return nil
	})
}

// Close releases the underlying socket.
func (b *Buffer) Close() error {
	return b.conn.Close()
}
