package btctl

import (
	"bytes"
	"io"
	"sync"
)

// Outcome classifies how an expect or watch call resolved. Callers must
// handle all three cases, not just the match.
type Outcome int

const (
	// Matched means one of the requested triggers appeared in the output.
	Matched Outcome = iota
	// TimedOut means no trigger appeared within the allowed window.
	TimedOut
	// Closed means the session output ended before any trigger appeared.
	Closed
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case TimedOut:
		return "timed out"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Result is the resolution of a single expect call.
type Result struct {
	Outcome Outcome

	// Index is the position of the matched trigger in the caller's
	// pattern list, or -1 when nothing matched.
	Index int

	// Before holds the output preceding the match. On TimedOut it is a
	// snapshot of everything buffered so far; that text stays buffered
	// for the next call.
	Before string
}

// findFirst locates the earliest trigger occurrence in buf. Arrival order
// wins: the pattern matching at the lowest offset is chosen, and a tie at
// the same offset goes to the pattern listed first.
func findFirst(buf []byte, patterns []string) (off, idx int, found bool) {
	off = -1
	for i, p := range patterns {
		if p == "" {
			continue
		}
		j := bytes.Index(buf, []byte(p))
		if j < 0 {
			continue
		}
		if off < 0 || j < off {
			off, idx, found = j, i, true
		}
	}
	return off, idx, found
}

// dispatcher is the single consumer of session output. One reader
// goroutine feeds it everything the control program prints; foreground
// expect calls and background watchers both resolve against that one
// read position, so no two goroutines ever compete for the stream.
type dispatcher struct {
	mu       sync.Mutex
	buf      []byte // output not yet consumed by a foreground match
	fg       *fgWaiter
	watchers map[*watcher]struct{}
	closed   bool
	err      error
	done     chan struct{}
}

// fgWaiter is the single armed foreground expect call.
type fgWaiter struct {
	patterns  []string
	ch        chan Result
	delivered bool
	result    Result
}

// watcher observes the raw stream for one trigger without consuming
// anything. It fires at most once.
type watcher struct {
	pattern string
	carry   []byte // trailing bytes since registration, spans read boundaries
	ch      chan Outcome
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		watchers: make(map[*watcher]struct{}),
		done:     make(chan struct{}),
	}
}

// readFrom pumps r into the dispatcher until EOF or a read error.
func (d *dispatcher) readFrom(r io.Reader) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			d.ingest(chunk[:n])
		}
		if err != nil {
			d.close(err)
			return
		}
	}
}

func (d *dispatcher) ingest(p []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	for w := range d.watchers {
		probe := make([]byte, 0, len(w.carry)+len(p))
		probe = append(probe, w.carry...)
		probe = append(probe, p...)
		if bytes.Contains(probe, []byte(w.pattern)) {
			w.ch <- Matched
			delete(d.watchers, w)
			continue
		}
		keep := len(w.pattern) - 1
		if keep > len(probe) {
			keep = len(probe)
		}
		w.carry = append(w.carry[:0], probe[len(probe)-keep:]...)
	}

	d.buf = append(d.buf, p...)
	d.deliverLocked()
}

// deliverLocked resolves the armed foreground waiter if its earliest
// trigger is now present, consuming the buffer through the match.
func (d *dispatcher) deliverLocked() {
	if d.fg == nil || d.fg.delivered {
		return
	}
	off, idx, ok := findFirst(d.buf, d.fg.patterns)
	if !ok {
		return
	}
	end := off + len(d.fg.patterns[idx])
	res := Result{Outcome: Matched, Index: idx, Before: string(d.buf[:off])}
	d.buf = append([]byte(nil), d.buf[end:]...)
	d.fg.delivered = true
	d.fg.result = res
	d.fg.ch <- res
}

// arm registers the foreground waiter and immediately checks output that
// already arrived. Only one foreground expect may be armed at a time; the
// Session mutex enforces that.
func (d *dispatcher) arm(patterns []string) *fgWaiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := &fgWaiter{patterns: patterns, ch: make(chan Result, 1)}
	if d.closed {
		w.delivered = true
		w.result = Result{Outcome: Closed, Index: -1, Before: string(d.buf)}
		w.ch <- w.result
		return w
	}
	d.fg = w
	d.deliverLocked()
	return w
}

// disarm removes the waiter after a timeout. If the dispatcher delivered
// a match in the meantime, that result wins over the timeout.
func (d *dispatcher) disarm(w *fgWaiter) (Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fg == w {
		d.fg = nil
	}
	if w.delivered {
		return w.result, true
	}
	return Result{}, false
}

// watch registers a one-shot observer for pattern in all future output.
// Past output is deliberately invisible so a stale trigger still sitting
// in the buffer cannot fire a fresh watcher.
func (d *dispatcher) watch(pattern string) (*watcher, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := &watcher{pattern: pattern, ch: make(chan Outcome, 1)}
	if d.closed {
		w.ch <- Closed
		return w, func() {}
	}
	d.watchers[w] = struct{}{}
	cancel := func() {
		d.mu.Lock()
		delete(d.watchers, w)
		d.mu.Unlock()
	}
	return w, cancel
}

func (d *dispatcher) close(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if err != nil && err != io.EOF {
		d.err = err
	}
	if d.fg != nil && !d.fg.delivered {
		d.fg.delivered = true
		d.fg.result = Result{Outcome: Closed, Index: -1, Before: string(d.buf)}
		d.fg.ch <- d.fg.result
		d.fg = nil
	}
	for w := range d.watchers {
		w.ch <- Closed
		delete(d.watchers, w)
	}
	close(d.done)
}

// snapshot returns the unconsumed buffer without touching it.
func (d *dispatcher) snapshot() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.buf)
}
