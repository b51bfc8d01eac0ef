package btctl

import "testing"

func TestFindFirst(t *testing.T) {
	tests := []struct {
		name     string
		buf      string
		patterns []string
		wantOff  int
		wantIdx  int
		found    bool
	}{
		{
			name:     "arrival order beats list order",
			buf:      "alpha fail beta ok",
			patterns: []string{"ok", "fail"},
			wantOff:  6,
			wantIdx:  1,
			found:    true,
		},
		{
			name:     "tie at same offset goes to earlier pattern",
			buf:      "xx Connected: yes",
			patterns: []string{"Conn", "Connected"},
			wantOff:  3,
			wantIdx:  0,
			found:    true,
		},
		{
			name:     "no pattern present",
			buf:      "nothing to see",
			patterns: []string{"fail", "ok"},
			found:    false,
		},
		{
			name:     "empty pattern never matches",
			buf:      "anything",
			patterns: []string{""},
			found:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, idx, found := findFirst([]byte(tt.buf), tt.patterns)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if !found {
				return
			}
			if off != tt.wantOff || idx != tt.wantIdx {
				t.Errorf("got (off=%d, idx=%d), want (off=%d, idx=%d)",
					off, idx, tt.wantOff, tt.wantIdx)
			}
		})
	}
}

func TestDispatcherWatcherSpansChunks(t *testing.T) {
	d := newDispatcher()
	w, cancel := d.watch("Connected: no")
	defer cancel()

	// Trigger split across two reads must still fire.
	d.ingest([]byte("AA:BB Connec"))
	d.ingest([]byte("ted: no\r\n"))

	select {
	case out := <-w.ch:
		if out != Matched {
			t.Fatalf("watcher outcome = %v, want Matched", out)
		}
	default:
		t.Fatal("watcher did not fire on a chunk-spanning trigger")
	}
}

func TestDispatcherWatcherIgnoresPastOutput(t *testing.T) {
	d := newDispatcher()

	// Trigger text that arrived before registration must not fire.
	d.ingest([]byte("AA:BB Connected: no\r\n"))

	w, cancel := d.watch("Connected: no")
	defer cancel()

	select {
	case <-w.ch:
		t.Fatal("watcher fired on output that predates it")
	default:
	}
}
