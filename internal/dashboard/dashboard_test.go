package dashboard

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/albertbausili/dropgate/internal/registry"
)

func TestHeadless_LogsOnlyStateChanges(t *testing.T) {
	var buf bytes.Buffer
	h := NewHeadless(log.New(&buf, "", 0))

	h.Render([]registry.Snapshot{{ID: 1, State: registry.StateReadingRequest}}, false)
	firstLen := buf.Len()
	if firstLen == 0 {
		t.Fatal("expected a log line for the first render")
	}

	h.Render([]registry.Snapshot{{ID: 1, State: registry.StateReadingRequest}}, false)
	if buf.Len() != firstLen {
		t.Error("expected no new log line when state is unchanged")
	}

	h.Render([]registry.Snapshot{{ID: 1, State: registry.StateClosed}}, false)
	if buf.Len() == firstLen {
		t.Error("expected a new log line once state changes")
	}
}

func TestHeadless_LogsPausedSummary(t *testing.T) {
	var buf bytes.Buffer
	h := NewHeadless(log.New(&buf, "", 0))

	h.Render(nil, true)
	if !strings.Contains(buf.String(), "paused") {
		t.Error("expected a paused summary line")
	}
}

func TestControlIntent_PostsToRegistry(t *testing.T) {
	reg := registry.New(nil)
	ci := NewControlIntent(reg)

	ci.TogglePause()
	ci.KillAll()
	ci.Shutdown()

	got := reg.DrainIntents()
	want := []registry.Intent{registry.IntentPauseToggle, registry.IntentKillAll, registry.IntentShutdown}
	if len(got) != len(want) {
		t.Fatalf("expected %d intents, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("intent %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
