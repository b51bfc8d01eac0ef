package bridge

import "testing"

func TestConnStateRoundTrip(t *testing.T) {
	s := NewConnState()
	const addr = "AA:BB:CC:DD:EE:FF"

	if s.Contains(addr) {
		t.Fatal("empty store claims to contain an address")
	}

	s.Insert(addr, "JBL GO 2")
	if !s.Contains(addr) {
		t.Fatal("store does not contain inserted address")
	}

	name, ok := s.Remove(addr)
	if !ok || name != "JBL GO 2" {
		t.Fatalf("Remove = (%q, %v), want (\"JBL GO 2\", true)", name, ok)
	}
	if s.Contains(addr) {
		t.Fatal("store still contains removed address")
	}

	// Second removal must report the miss; this is the guard the
	// coordinator uses against duplicate disconnect handling.
	if _, ok := s.Remove(addr); ok {
		t.Fatal("second Remove reported ok")
	}
}

func TestConnStateSnapshotIsACopy(t *testing.T) {
	s := NewConnState()
	s.Insert("AA:BB:CC:DD:EE:FF", "Speaker")

	snap := s.Snapshot()
	snap["00:11:22:33:44:55"] = "intruder"

	if s.Contains("00:11:22:33:44:55") {
		t.Fatal("mutating a snapshot leaked into the store")
	}
	if len(s.Snapshot()) != 1 {
		t.Fatalf("store size changed, want 1 entry")
	}
}
