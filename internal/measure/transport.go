package measure

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"
)

// countingTransport counts request and response body bytes and reports each
// round trip to the attached Progress as one slot.
type countingTransport struct {
	base http.RoundTripper

	sent     atomic.Int64
	received atomic.Int64
	seq      atomic.Int64

	mu       sync.RWMutex
	progress Progress
	slots    int
}

func newCountingTransport(base http.RoundTripper) *countingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &countingTransport{base: base}
}

// attach routes progress of subsequent round trips to p using slots cells.
// A nil p detaches.
func (t *countingTransport) attach(p Progress, slots int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = p
	t.slots = slots
	t.seq.Store(0)
}

// resetCounters zeroes the byte counters.
func (t *countingTransport) resetCounters() {
	t.sent.Store(0)
	t.received.Store(0)
}

// counters returns bytes sent and received since the last reset.
func (t *countingTransport) counters() (sent, received int64) {
	return t.sent.Load(), t.received.Load()
}

func (t *countingTransport) current() (Progress, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress, t.slots
}

// RoundTrip implements http.RoundTripper.
func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	progress, slots := t.current()
	slot := -1
	if progress != nil && slots > 0 {
		slot = int(t.seq.Add(1)-1) % slots
		progress.Update(slot, slots, CellStarted)
	}

	if req.Body != nil && req.Body != http.NoBody {
		// RoundTrippers must not modify the caller's request.
		clone := req.Clone(req.Context())
		clone.Body = &countingReader{ReadCloser: req.Body, n: &t.sent}
		req = clone
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		if slot >= 0 {
			progress.Update(slot, slots, CellEmpty)
		}
		return nil, err
	}

	body := &countingReader{ReadCloser: resp.Body, n: &t.received}
	if slot >= 0 {
		body.onClose = func() { progress.Update(slot, slots, CellFinished) }
	}
	resp.Body = body
	return resp, nil
}

// countingReader adds the bytes read through it to n.
type countingReader struct {
	io.ReadCloser
	n       *atomic.Int64
	onClose func()
	once    sync.Once
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n.Add(int64(n))
	return n, err
}

func (r *countingReader) Close() error {
	err := r.ReadCloser.Close()
	if r.onClose != nil {
		r.once.Do(r.onClose)
	}
	return err
}
