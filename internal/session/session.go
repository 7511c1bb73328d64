// Package session implements the per-connection state machine spec.md
// §4.6 names: Accepted → ReadingRequest → (Resolving → WritingResponse) |
// (ReadingBody → WritingResponse) → Closed. A Session owns one wire.Buffer
// and drives the parser, resolver, response builder and upload sink
// against it one event-loop tick at a time; it never blocks.
package session

import (
	"path"
	"strings"
	"time"

	"github.com/panjf2000/gnet/v2"

	"github.com/albertbausili/dropgate/internal/config"
	"github.com/albertbausili/dropgate/internal/httpwire"
	"github.com/albertbausili/dropgate/internal/registry"
	"github.com/albertbausili/dropgate/internal/resolve"
	"github.com/albertbausili/dropgate/internal/respond"
	"github.com/albertbausili/dropgate/internal/telemetry"
	"github.com/albertbausili/dropgate/internal/upload"
	"github.com/albertbausili/dropgate/internal/wire"
)

// Outcome tells the reactor what to do with the connection after a tick.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeClose
)

// Session is one connection's FSM, per spec.md §4.6.
type Session struct {
	ID   uint64
	Peer string

	buf      *wire.Buffer
	cfg      *config.Config
	resolver *resolve.Resolver
	mime     respond.MIMETypes
	writer   *respond.Writer
	reg      *registry.Registry
	span     *telemetry.ConnectionSpan

	state        registry.State
	startedAt    time.Time
	lastActivity time.Time

	req           *httpwire.Request
	headReady     bool
	headWritten   bool
	bodyRemaining int64

	sink           *upload.Sink
	uploadRedirect string

	plan                respond.Plan
	responseBaseWritten int64
}

// New creates a Session bound to conn, in state Accepted.
func New(id uint64, peer string, conn gnet.Conn, cfg *config.Config, resolver *resolve.Resolver, reg *registry.Registry, span *telemetry.ConnectionSpan) *Session {
	buf := wire.New(conn, cfg.WireBufferSize)
	return &Session{
		ID:           id,
		Peer:         peer,
		buf:          buf,
		cfg:          cfg,
		resolver:     resolver,
		mime:         respond.DefaultMIMETypes{},
		writer:       respond.NewWriter(buf, cfg.WireBufferSize),
		reg:          reg,
		span:         span,
		state:        registry.StateAccepted,
		startedAt:    time.Now(),
		lastActivity: time.Now(),
	}
}

// LastActivity reports when this session last received inbound traffic
// (the last OnTraffic call), used by the reactor's idle-timeout sweep
// (spec.md §4.6).
func (s *Session) LastActivity() time.Time { return s.lastActivity }

// Open transitions Accepted → ReadingRequest and publishes the first
// snapshot, per spec.md §4.6.
func (s *Session) Open() {
	s.state = registry.StateReadingRequest
	s.publish()
}

// BytesRead and BytesWritten expose the wire buffer's cumulative counters,
// mirrored into every published registry.Snapshot.
func (s *Session) BytesRead() int64    { return s.buf.BytesRead() }
func (s *Session) BytesWritten() int64 { return s.buf.BytesWritten() }

func (s *Session) publish() {
	if s.reg == nil {
		return
	}
	s.reg.Put(registry.Snapshot{
		ID:           s.ID,
		Peer:         s.Peer,
		State:        s.state,
		BytesRead:    s.buf.BytesRead(),
		BytesWritten: s.buf.BytesWritten(),
		Expected:     s.bodyRemaining,
		StartedAt:    s.startedAt,
	})
}

// OnTraffic drives the FSM forward as far as the currently buffered bytes
// allow. paused reflects the registry's pause intent, sampled once at
// request-head completion per spec.md §9's design note: a request already
// mid-flight always finishes, a new one is answered with 503.
func (s *Session) OnTraffic(paused bool) (Outcome, error) {
	s.lastActivity = time.Now()
	for {
		prevState := s.state
		switch s.state {

		case registry.StateAccepted:
			s.Open()

		case registry.StateReadingRequest:
			if s.headReady {
				if paused {
					// A head already parsed mid-pause still needs a response:
					// nothing else re-drives the FSM once the socket goes
					// quiet, per spec.md §4.6 pause semantics.
					s.plan = respond.Error(503)
					s.state = registry.StateWritingResponse
					continue
				}
				s.dispatchAfterHead()
				continue
			}
			done, err := s.tryParseHead()
			if err != nil {
				s.plan = respond.Error(400)
				s.state = registry.StateWritingResponse
				continue
			}
			if !done {
				return OutcomeContinue, nil
			}
			continue

		case registry.StateReadingBody:
			outcome, err := s.readBody()
			if err != nil {
				return outcome, err
			}
			if s.state == prevState {
				return OutcomeContinue, nil
			}

		case registry.StateResolving:
			s.resolveRequest()

		case registry.StateWritingResponse:
			outcome, err := s.writeResponse()
			if err != nil {
				return outcome, err
			}
			if s.state == prevState {
				return outcome, nil
			}

		case registry.StateClosed:
			return OutcomeClose, nil
		}

		s.publish()
		if s.state == prevState {
			return OutcomeContinue, nil
		}
	}
}

func (s *Session) tryParseHead() (done bool, err error) {
	limit := s.buf.Buffered()
	if limit > s.buf.Capacity() {
		limit = s.buf.Capacity()
	}
	peeked, err := s.buf.Peek(limit)
	if err != nil {
		return false, err
	}
	req, n, err := httpwire.ParseHead(peeked)
	if httpwire.IsNeedMore(err) {
		if limit >= s.buf.Capacity() {
			// A full buffer with no complete head in sight, per spec.md §3
			// invariant (e).
			return false, wire.ErrNoProgress
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if consumeErr := s.buf.Consume(n); consumeErr != nil {
		return false, consumeErr
	}
	s.req = req
	s.headReady = true
	s.span.SetRequest(req.Method, req.Path)
	return true, nil
}

func (s *Session) dispatchAfterHead() {
	s.headReady = false
	req := s.req

	switch req.Method {
	case httpwire.MethodGet, httpwire.MethodHead:
		s.state = registry.StateResolving
		return
	case httpwire.MethodPost:
		s.dispatchUpload()
		return
	default:
		s.plan = respond.MethodNotAllowed()
		s.state = registry.StateWritingResponse
	}
}

func (s *Session) dispatchUpload() {
	req := s.req
	if !s.cfg.UploadEnabled {
		s.plan = respond.Error(403)
		s.state = registry.StateWritingResponse
		return
	}
	if req.ContentType != "multipart/form-data" {
		s.plan = respond.Error(400)
		s.state = registry.StateWritingResponse
		return
	}
	boundary, ok := req.ContentTypeParams["boundary"]
	if !ok || boundary == "" {
		s.plan = respond.Error(400)
		s.state = registry.StateWritingResponse
		return
	}
	if req.ContentLength < 0 {
		s.plan = respond.Error(400)
		s.state = registry.StateWritingResponse
		return
	}
	if s.cfg.UploadSizeCap > 0 && req.ContentLength > s.cfg.UploadSizeCap {
		// Reject before any 100-continue or body read, per spec.md §4.5
		// step 1: validate Content-Length against the configured ceiling
		// up front rather than discovering the overage mid-stream.
		s.plan = respond.Error(400)
		s.state = registry.StateWritingResponse
		return
	}
	target := s.resolver.ResolveUploadTarget(req.Path)
	if target.Kind != resolve.KindDir {
		s.plan = respond.Error(400)
		s.state = registry.StateWritingResponse
		return
	}
	if req.Expect100Continue {
		s.writer.WriteContinue(func(error) {})
	}
	s.sink = upload.NewSink(boundary, target.AbsPath, s.cfg.UploadSizeCap)
	s.bodyRemaining = req.ContentLength
	s.uploadRedirect = req.Path
	s.state = registry.StateReadingBody
}

func (s *Session) readBody() (Outcome, error) {
	if s.bodyRemaining == 0 {
		s.finishUpload(nil)
		return OutcomeContinue, nil
	}
	available := s.buf.Buffered()
	if available == 0 {
		return OutcomeContinue, nil
	}
	take := int64(available)
	if take > s.bodyRemaining {
		take = s.bodyRemaining
	}
	chunk, err := s.buf.Next(int(take))
	if err != nil {
		return OutcomeClose, err
	}
	s.bodyRemaining -= int64(len(chunk))
	_, feedErr := s.sink.Feed(chunk)
	if feedErr != nil {
		s.finishUpload(feedErr)
		return OutcomeContinue, nil
	}
	if s.bodyRemaining == 0 {
		s.finishUpload(s.sink.Finish())
	}
	return OutcomeContinue, nil
}

func (s *Session) finishUpload(err error) {
	if err != nil {
		s.span.RecordError(err)
		if m := s.reg.Metrics(); m != nil {
			m.UploadsFailed.Inc()
		}
		s.plan = respond.Error(500)
	} else {
		if m := s.reg.Metrics(); m != nil {
			m.UploadsCompleted.Inc()
		}
		s.plan = respond.Redirect(303, s.uploadRedirect)
	}
	s.state = registry.StateWritingResponse
}

func (s *Session) resolveRequest() {
	req := s.req
	headOnly := req.Method == httpwire.MethodHead
	res := s.resolver.Resolve(req.Path)

	switch res.Kind {
	case resolve.KindNotFound:
		s.plan = respond.Error(404)
	case resolve.KindForbidden:
		s.plan = respond.Error(403)
	case resolve.KindFile:
		ext := extOf(req.Path)
		plan, err := respond.File(s.mime, res, ext, headOnly)
		if err != nil {
			s.plan = respond.Error(404)
		} else {
			s.plan = plan
		}
	case resolve.KindDir:
		s.plan = s.resolveDir(req.Path, res, headOnly)
	}
	s.state = registry.StateWritingResponse
}

func (s *Session) resolveDir(reqPath string, res resolve.Result, headOnly bool) respond.Plan {
	if !strings.HasSuffix(reqPath, "/") && !s.cfg.NoAppendSlash {
		return respond.Redirect(303, reqPath+"/")
	}
	if !s.cfg.NoIndexFile {
		idx := s.resolver.Resolve(path.Join(reqPath, s.cfg.IndexFile))
		if idx.Kind == resolve.KindFile {
			plan, err := respond.Index(s.mime, idx, headOnly)
			if err == nil {
				return plan
			}
		}
	}
	if s.cfg.DisableDirs {
		return respond.Error(403)
	}
	plan, err := respond.Directory(reqPath, res, s.cfg.UploadEnabled, headOnly)
	if err != nil {
		return respond.Error(500)
	}
	return plan
}

func (s *Session) writeResponse() (Outcome, error) {
	if !s.headWritten {
		s.headWritten = true
		s.responseBaseWritten = s.buf.BytesWritten()
		s.writer.WriteHead(s.plan, func(error) {})
		if s.plan.Body.Kind != respond.BodyFile {
			return s.finishResponse(), nil
		}
		return OutcomeContinue, nil
	}
	if s.plan.Body.Kind == respond.BodyFile {
		finished, err := s.writer.StreamFileChunk(&s.plan, func(error) {})
		if err != nil {
			return OutcomeClose, err
		}
		if finished {
			return s.finishResponse(), nil
		}
	}
	return OutcomeContinue, nil
}

func (s *Session) finishResponse() Outcome {
	sent := s.buf.BytesWritten() - s.responseBaseWritten
	s.span.SetResponse(s.plan.Status, sent)
	if m := s.reg.Metrics(); m != nil {
		m.BytesServed.Add(float64(sent))
	}
	s.headWritten = false
	s.req = nil
	s.sink = nil
	s.bodyRemaining = 0
	s.plan = respond.Plan{}

	// The server always closes after one request/response; there is no
	// keep-alive in the core, per spec.md §4.4.
	s.state = registry.StateClosed
	return OutcomeClose
}

// Close marks the session Closed and publishes a final snapshot before the
// reactor removes it from the registry.
func (s *Session) Close() {
	s.state = registry.StateClosed
	s.publish()
	s.span.End()
}

func extOf(p string) string {
	if i := strings.LastIndexByte(p, '.'); i != -1 {
		return p[i:]
	}
	return ""
}
