// Package dashboard is the seam between the reactor's registry and a
// terminal UI. Building the actual TUI is out of scope (spec.md §1 names
// "interfaces only"); what lives here is the Dashboard/ControlIntent
// contract a real terminal front-end would implement, plus a Headless
// implementation that just logs connection-state transitions the way
// celeris's silent gnet logger stays quiet by design — except inverted,
// this one is the one that's supposed to talk.
package dashboard

import (
	"fmt"
	"log"
	"time"

	"github.com/albertbausili/dropgate/internal/registry"
)

// Dashboard renders the registry's live snapshots. A real terminal UI
// implements this against a rendering library; Headless is the only
// implementation this repository carries.
type Dashboard interface {
	Render(snapshots []registry.Snapshot, paused bool)
	Close()
}

// ControlIntent is the operator-facing surface a Dashboard uses to post
// pause/kill/shutdown requests, per spec.md §5.
type ControlIntent interface {
	TogglePause()
	KillAll()
	Shutdown()
}

// registryIntents adapts a *registry.Registry to ControlIntent.
type registryIntents struct {
	reg *registry.Registry
}

// NewControlIntent wraps reg as a ControlIntent poster.
func NewControlIntent(reg *registry.Registry) ControlIntent {
	return registryIntents{reg: reg}
}

func (r registryIntents) TogglePause() { r.reg.PostIntent(registry.IntentPauseToggle) }
func (r registryIntents) KillAll()     { r.reg.PostIntent(registry.IntentKillAll) }
func (r registryIntents) Shutdown()    { r.reg.PostIntent(registry.IntentShutdown) }

// Headless logs one line per connection state change, and a summary line
// on each render while the server is paused. cmd/dropgate uses it in every
// mode; its logger discards output unless --headless is set (spec.md §6).
type Headless struct {
	logger     *log.Logger
	lastStates map[uint64]registry.State
}

// NewHeadless builds a Headless dashboard writing through logger.
func NewHeadless(logger *log.Logger) *Headless {
	return &Headless{logger: logger, lastStates: make(map[uint64]registry.State)}
}

// Render logs only the connections whose state changed since the last
// call, plus a summary line on every call while paused, avoiding log spam
// on an idle, unpaused server.
func (h *Headless) Render(snapshots []registry.Snapshot, paused bool) {
	seen := make(map[uint64]bool, len(snapshots))
	for _, s := range snapshots {
		seen[s.ID] = true
		if prev, ok := h.lastStates[s.ID]; !ok || prev != s.State {
			h.lastStates[s.ID] = s.State
			h.logger.Printf("conn %d %s %s read=%d written=%d", s.ID, s.Peer, s.State, s.BytesRead, s.BytesWritten)
		}
	}
	for id := range h.lastStates {
		if !seen[id] {
			delete(h.lastStates, id)
		}
	}
	if paused {
		h.logger.Printf("server paused, %d connection(s) live", len(snapshots))
	}
}

// Close is a no-op for Headless; there is no terminal state to restore.
func (h *Headless) Close() {}

// Run polls reg on interval and renders into d until stop is closed.
// cmd/dropgate runs it with a Headless dashboard.
func Run(d Dashboard, reg *registry.Registry, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			d.Close()
			return
		case <-ticker.C:
			d.Render(reg.Snapshots(), reg.Paused())
		}
	}
}

// Summary renders a one-line human-readable status naming the bind
// address. cmd/dropgate prints its own startup banner and does not call it.
func Summary(cfg interface {
	Addr() string
}) string {
	return fmt.Sprintf("serving on %s", cfg.Addr())
}
