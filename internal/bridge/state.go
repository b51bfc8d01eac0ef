package bridge

// ConnState maps connected device addresses to their friendly names. An
// address is present exactly while the coordinator believes the device
// is connected. Plain data, not internally synchronized: the Coordinator
// is the single writer and guards every access with its own mutex.
type ConnState struct {
	devices map[string]string
}

// NewConnState returns an empty store.
func NewConnState() *ConnState {
	return &ConnState{devices: make(map[string]string)}
}

// Insert records addr as connected under name.
func (s *ConnState) Insert(addr, name string) {
	s.devices[addr] = name
}

// Remove deletes addr and reports the name it was stored under. The
// ok flag is the double-removal guard: exactly one caller observes true
// per connection, whether the removal came from an explicit operation or
// from the disconnect watcher.
func (s *ConnState) Remove(addr string) (string, bool) {
	name, ok := s.devices[addr]
	if ok {
		delete(s.devices, addr)
	}
	return name, ok
}

// Contains reports whether addr is currently considered connected.
func (s *ConnState) Contains(addr string) bool {
	_, ok := s.devices[addr]
	return ok
}

// Snapshot returns a copy of the full address-to-name mapping.
func (s *ConnState) Snapshot() map[string]string {
	out := make(map[string]string, len(s.devices))
	for addr, name := range s.devices {
		out[addr] = name
	}
	return out
}
