package registry

import "testing"

func TestPutAndSnapshots(t *testing.T) {
	r := New(nil)
	r.Put(Snapshot{ID: 1, Peer: "1.2.3.4:5", State: StateReadingRequest})
	r.Put(Snapshot{ID: 2, Peer: "5.6.7.8:9", State: StateWritingResponse})

	snaps := r.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if r.Count() != 2 {
		t.Errorf("expected Count() 2, got %d", r.Count())
	}
}

func TestRemove(t *testing.T) {
	r := New(nil)
	r.Put(Snapshot{ID: 1})
	r.Remove(1)

	if r.Count() != 0 {
		t.Errorf("expected Count() 0 after Remove, got %d", r.Count())
	}
}

func TestIntentQueue_DrainsOnce(t *testing.T) {
	r := New(nil)
	r.PostIntent(IntentPauseToggle)
	r.PostIntent(IntentKillAll)

	got := r.DrainIntents()
	if len(got) != 2 {
		t.Fatalf("expected 2 intents, got %d", len(got))
	}
	if got[0] != IntentPauseToggle || got[1] != IntentKillAll {
		t.Errorf("unexpected intent order: %v", got)
	}

	if more := r.DrainIntents(); more != nil {
		t.Errorf("expected nil after draining, got %v", more)
	}
}

func TestPausedMirror(t *testing.T) {
	r := New(nil)
	if r.Paused() {
		t.Error("expected Paused() false by default")
	}
	r.SetPaused(true)
	if !r.Paused() {
		t.Error("expected Paused() true after SetPaused(true)")
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateAccepted:        "accepted",
		StateReadingRequest:  "reading-request",
		StateReadingBody:     "reading-body",
		StateResolving:       "resolving",
		StateWritingResponse: "writing-response",
		StateClosed:          "closed",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
