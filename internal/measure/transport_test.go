package measure

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// recordingProgress remembers every update.
type recordingProgress struct {
	mu      sync.Mutex
	updates []CellState
	slots   []int
}

func (r *recordingProgress) Update(slot, total int, state CellState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, slot)
	r.updates = append(r.updates, state)
}

func (r *recordingProgress) Reset() {}

func TestCountingTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	tr := newCountingTransport(nil)
	client := &http.Client{Transport: tr}

	progress := &recordingProgress{}
	tr.attach(progress, 3)

	for i := 0; i < 4; i++ {
		resp, err := client.Post(srv.URL, "text/plain", strings.NewReader(strings.Repeat("y", 250)))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	sent, received := tr.counters()
	if sent != 1000 {
		t.Errorf("expected 1000 bytes sent, got %d", sent)
	}
	if received != 4000 {
		t.Errorf("expected 4000 bytes received, got %d", received)
	}

	progress.mu.Lock()
	wantSlots := []int{0, 0, 1, 1, 2, 2, 0, 0}
	if len(progress.slots) != len(wantSlots) {
		t.Fatalf("expected %d updates, got %d", len(wantSlots), len(progress.slots))
	}
	for i, s := range wantSlots {
		if progress.slots[i] != s {
			t.Errorf("update %d: expected slot %d, got %d", i, s, progress.slots[i])
		}
		want := CellStarted
		if i%2 == 1 {
			want = CellFinished
		}
		if progress.updates[i] != want {
			t.Errorf("update %d: expected state %d, got %d", i, want, progress.updates[i])
		}
	}
	progress.mu.Unlock()

	tr.resetCounters()
	if s, r := tr.counters(); s != 0 || r != 0 {
		t.Errorf("counters not reset: %d %d", s, r)
	}
}

func TestCountingTransport_Detached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tr := newCountingTransport(nil)
	progress := &recordingProgress{}
	tr.attach(progress, 3)
	tr.attach(nil, 0)

	resp, err := (&http.Client{Transport: tr}).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if len(progress.updates) != 0 {
		t.Errorf("detached transport reported %d updates", len(progress.updates))
	}
	if _, r := tr.counters(); r != 2 {
		t.Errorf("expected 2 bytes received, got %d", r)
	}
}

func TestCountingTransport_ErrorClearsSlot(t *testing.T) {
	tr := newCountingTransport(nil)
	progress := &recordingProgress{}
	tr.attach(progress, 2)

	_, err := (&http.Client{Transport: tr}).Get("http://127.0.0.1:1/")
	if err == nil {
		t.Fatal("expected connection error")
	}

	progress.mu.Lock()
	defer progress.mu.Unlock()
	if len(progress.updates) != 2 || progress.updates[1] != CellEmpty {
		t.Errorf("expected started then empty, got %v", progress.updates)
	}
}
