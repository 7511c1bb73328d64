// Package reactor is the single event-loop gnet.EventHandler that accepts
// connections and drives each one's session.Session, per spec.md §4.1 and
// §5's single-OS-thread invariant. One Reactor, one event loop, one
// goroutine touching the filesystem and the wire; everything else
// (dashboard, registry reads) only ever reads snapshots the Reactor
// publishes.
package reactor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/gnet/v2"

	"github.com/albertbausili/dropgate/internal/config"
	"github.com/albertbausili/dropgate/internal/registry"
	"github.com/albertbausili/dropgate/internal/resolve"
	"github.com/albertbausili/dropgate/internal/session"
	"github.com/albertbausili/dropgate/internal/telemetry"
)

// Reactor implements gnet.EventHandler over exactly one event loop,
// mapping each gnet.Conn to a *session.Session stored in its context.
type Reactor struct {
	gnet.BuiltinEventEngine

	cfg      *config.Config
	resolver *resolve.Resolver
	reg      *registry.Registry
	tracer   *telemetry.Tracer

	nextID uint64
	paused atomic.Bool

	// conns tracks every live connection so kill-all can close each one
	// individually without touching the listener, and so OnTick can sweep
	// idle connections. Only ever touched from the single event-loop
	// goroutine, per spec.md §5.
	conns map[uint64]gnet.Conn
}

// New constructs a Reactor serving cfg.ServeRoot, publishing snapshots and
// metrics to reg.
func New(cfg *config.Config, reg *registry.Registry) *Reactor {
	r := &Reactor{
		cfg:      cfg,
		resolver: resolve.New(cfg.ServeRoot),
		reg:      reg,
		tracer:   telemetry.New(),
		conns:    make(map[uint64]gnet.Conn),
	}
	r.paused.Store(cfg.StartDisabled)
	return r
}

// Run blocks serving on cfg.Addr() until the process is signaled to stop
// or an unrecoverable error occurs. It wires SO_REUSEADDR and pins the
// engine to a single, non-multicore event loop per spec.md §5.
func (r *Reactor) Run() error {
	protoAddr := fmt.Sprintf("tcp://%s", r.cfg.Addr())
	return gnet.Run(r, protoAddr,
		gnet.WithMulticore(false),
		gnet.WithNumEventLoop(1),
		gnet.WithReuseAddr(true),
		gnet.WithReusePort(true),
		gnet.WithSocketRecvBuffer(r.cfg.WireBufferSize),
		gnet.WithSocketSendBuffer(r.cfg.WireBufferSize),
		gnet.WithTicker(true),
	)
}

// OnBoot satisfies gnet.EventHandler; no engine-level state to record now
// that kill-all closes connections individually instead of stopping gnet.
func (r *Reactor) OnBoot(gnet.Engine) gnet.Action {
	return gnet.None
}

// OnOpen creates a Session for the new connection and seeds its registry
// snapshot and telemetry span.
func (r *Reactor) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	id := atomic.AddUint64(&r.nextID, 1)
	peer := ""
	if addr := c.RemoteAddr(); addr != nil {
		peer = addr.String()
	}
	span := r.tracer.Start(context.Background(), id, peer)
	sess := session.New(id, peer, c, r.cfg, r.resolver, r.reg, span)
	c.SetContext(sess)
	sess.Open()
	r.conns[id] = c
	if m := r.reg.Metrics(); m != nil {
		m.ConnectionsAccepted.Inc()
		m.ConnectionsActive.Inc()
	}
	return nil, gnet.None
}

// OnTraffic drains queued control intents, then drives the connection's
// Session forward as far as the buffered bytes allow.
func (r *Reactor) OnTraffic(c gnet.Conn) gnet.Action {
	r.applyIntents()

	sess, ok := c.Context().(*session.Session)
	if !ok {
		return gnet.Close
	}
	outcome, err := sess.OnTraffic(r.paused.Load())
	_ = err // surfaced via the connection's telemetry span; the FSM already
	// recorded it and chose an error response or closure.
	if outcome == session.OutcomeClose {
		return gnet.Close
	}
	return gnet.None
}

// OnClose tears down the Session's registry entry and telemetry span.
func (r *Reactor) OnClose(c gnet.Conn, _ error) gnet.Action {
	if sess, ok := c.Context().(*session.Session); ok {
		sess.Close()
		r.reg.Remove(sess.ID)
		delete(r.conns, sess.ID)
	}
	if m := r.reg.Metrics(); m != nil {
		m.ConnectionsClosed.Inc()
		m.ConnectionsActive.Dec()
	}
	return gnet.None
}

// OnTick applies any pending control intents on a fixed cadence even when
// no connection is generating traffic, so a kill-all or shutdown lands
// within one tick of being posted, per spec.md §5. It also sweeps
// connections that have been idle past cfg.IdleTimeout (spec.md §4.6).
func (r *Reactor) OnTick() (time.Duration, gnet.Action) {
	action := r.applyIntents()
	r.sweepIdle()
	return r.cfg.UIRefreshRate, action
}

// sweepIdle closes connections that have received no inbound traffic for
// longer than cfg.IdleTimeout, without touching the listener.
func (r *Reactor) sweepIdle() {
	now := time.Now()
	for id, c := range r.conns {
		sess, ok := c.Context().(*session.Session)
		if !ok {
			continue
		}
		if now.Sub(sess.LastActivity()) > r.cfg.IdleTimeout {
			_ = c.Close()
			delete(r.conns, id)
		}
	}
}

func (r *Reactor) applyIntents() gnet.Action {
	intents := r.reg.DrainIntents()
	action := gnet.None
	for _, intent := range intents {
		switch intent {
		case registry.IntentPauseToggle:
			r.paused.Store(!r.paused.Load())
			r.reg.SetPaused(r.paused.Load())
			if m := r.reg.Metrics(); m != nil {
				m.PauseToggles.Inc()
			}
		case registry.IntentKillAll:
			if m := r.reg.Metrics(); m != nil {
				m.KillAllEvents.Inc()
			}
			// Close every live connection individually; the listener
			// keeps accepting, per spec.md §6 ("listener unaffected").
			for id, c := range r.conns {
				_ = c.Close()
				delete(r.conns, id)
			}
		case registry.IntentShutdown:
			action = gnet.Shutdown
		}
	}
	return action
}
