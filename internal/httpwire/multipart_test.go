package httpwire

import (
	"bytes"
	"testing"
)

func TestFindDelimiter_AtStart(t *testing.T) {
	boundary := "BOUNDARY"
	delim := Delimiter(boundary)
	body := append(append([]byte{}, delim...), []byte("\r\nContent-Disposition: form-data\r\n\r\ndata")...)

	res := FindDelimiter(body, delim, true)
	if !res.Found {
		t.Fatal("expected delimiter to be found at start")
	}
	if res.Final {
		t.Error("expected non-final delimiter")
	}
	if res.Index != 0 {
		t.Errorf("expected Index 0, got %d", res.Index)
	}
}

func TestFindDelimiter_Final(t *testing.T) {
	boundary := "BOUNDARY"
	delim := Delimiter(boundary)
	body := []byte("payload\r\n")
	body = append(body, delim...)
	body = append(body, []byte("--\r\n")...)

	res := FindDelimiter(body, delim, false)
	if !res.Found {
		t.Fatal("expected delimiter to be found")
	}
	if !res.Final {
		t.Error("expected final delimiter")
	}
	bodyEnd := res.Index - 2
	if !bytes.Equal(body[:bodyEnd], []byte("payload")) {
		t.Errorf("expected body 'payload', got %q", body[:bodyEnd])
	}
}

func TestFindDelimiter_NotFound(t *testing.T) {
	res := FindDelimiter([]byte("no boundary here"), Delimiter("BOUNDARY"), false)
	if res.Found {
		t.Error("expected not found")
	}
}

func TestFindDelimiter_SplitAcrossChunks(t *testing.T) {
	boundary := "BOUNDARY"
	delim := Delimiter(boundary)
	full := []byte("payload\r\n")
	full = append(full, delim...)
	full = append(full, []byte("\r\n")...)

	// Simulate a chunk boundary landing mid-delimiter: the tail window must
	// be large enough that a caller retaining it would still see the split
	// delimiter whole once the next chunk arrives.
	split := len(full) - 3
	first, second := full[:split], full[split:]

	tail := TailWindowSize(boundary)
	if len(first) < tail {
		t.Fatalf("test fixture too short for tail window %d", tail)
	}
	reassembled := append(append([]byte{}, first[len(first)-tail:]...), second...)

	res := FindDelimiter(reassembled, delim, false)
	if !res.Found {
		t.Error("expected delimiter to be found once tail window is retained")
	}
}
