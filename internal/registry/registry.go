// Package registry is the Reactor's shared observable state, per spec.md
// §4.8: a read-only-by-consumers mapping from connection id to a snapshot
// of its progress counters, plus the control-intent queue the dashboard
// posts pause/kill/shutdown requests onto. It is the only state that
// crosses the Reactor/dashboard thread boundary (spec.md §5), guarded by
// one mutex that the Reactor never holds across I/O.
package registry

import (
	"sort"
	"sync"
	"time"
)

// State mirrors the Connection FSM states from spec.md §4.6, projected
// into the read-only snapshot the dashboard consumes.
type State int

const (
	StateAccepted State = iota
	StateReadingRequest
	StateReadingBody
	StateResolving
	StateWritingResponse
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateReadingRequest:
		return "reading-request"
	case StateReadingBody:
		return "reading-body"
	case StateResolving:
		return "resolving"
	case StateWritingResponse:
		return "writing-response"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable, copyable view of one connection's observable
// counters, per spec.md §4.8.
type Snapshot struct {
	ID           uint64
	Peer         string
	State        State
	BytesRead    int64
	BytesWritten int64
	Expected     int64 // expected body length, -1 if unknown
	StartedAt    time.Time
}

// Intent is a control message the dashboard posts toward the Reactor.
type Intent int

const (
	IntentPauseToggle Intent = iota
	IntentKillAll
	IntentShutdown
)

// Registry holds live connection snapshots and the pending intent queue.
type Registry struct {
	mu      sync.Mutex
	conns   map[uint64]Snapshot
	intents []Intent
	paused  bool

	metrics *Metrics
}

// New creates an empty Registry, wiring the given Prometheus metrics (may
// be nil to disable metrics entirely).
func New(metrics *Metrics) *Registry {
	return &Registry{conns: make(map[uint64]Snapshot), metrics: metrics}
}

// Put inserts or updates a connection's snapshot. Called by the Reactor
// after each FSM work slice, per spec.md §4.8.
func (r *Registry) Put(s Snapshot) {
	r.mu.Lock()
	r.conns[s.ID] = s
	r.mu.Unlock()
}

// Remove drops a connection's snapshot once it reaches Closed.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Snapshots returns a copy of every live connection's snapshot, sorted by
// id for stable dashboard rendering.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.conns))
	for _, s := range r.conns {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// PostIntent enqueues a control intent from the dashboard thread. Takes
// effect no later than the next Reactor tick, per spec.md §5.
func (r *Registry) PostIntent(i Intent) {
	r.mu.Lock()
	r.intents = append(r.intents, i)
	r.mu.Unlock()
}

// DrainIntents removes and returns all queued intents, for the Reactor to
// act on during its tick.
func (r *Registry) DrainIntents() []Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.intents) == 0 {
		return nil
	}
	out := r.intents
	r.intents = nil
	return out
}

// Metrics returns the wired Prometheus metrics, or nil if disabled.
func (r *Registry) Metrics() *Metrics { return r.metrics }

// SetPaused mirrors the reactor's authoritative pause flag here so
// dashboard renders can read it without reaching into the reactor.
func (r *Registry) SetPaused(paused bool) {
	r.mu.Lock()
	r.paused = paused
	r.mu.Unlock()
}

// Paused reports the last pause state the reactor mirrored.
func (r *Registry) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}
