package btctl

import (
	"strings"
	"time"
)

// promptMarker is the ANSI color sequence bluetoothctl uses when it
// re-renders its prompt. Its appearance is the closest thing the tool
// has to an "output finished" signal for listing commands.
const promptMarker = "0;94m"

// Per-command timing. The settle pauses exist because bluetoothctl
// reports some effects well after echoing the command; reading too early
// races the report. The tool offers no structured completion event, so
// the fixed delays stay, isolated here as named constants.
const (
	defaultTimeout   = 8 * time.Second
	discoveryTimeout = 4 * time.Second
	connectTimeout   = 6 * time.Second
	pairSettle       = 4 * time.Second
	trustSettle      = 4 * time.Second
	removeSettle     = 3 * time.Second
)

// outcome reduces a command Result to the operation's boolean, treating
// TimedOut as the operation-specific negative result and Closed as a
// fatal session failure.
func (s *Session) outcome(res Result, err error, want ...int) (bool, error) {
	if err != nil {
		return false, err
	}
	switch res.Outcome {
	case Closed:
		return false, s.closedErr()
	case Matched:
		for _, i := range want {
			if res.Index == i {
				return true, nil
			}
		}
	}
	return false, nil
}

// StartDiscovery turns on scanning and reports whether the controller
// acknowledged it.
func (s *Session) StartDiscovery() (bool, error) {
	res, err := s.run("scan on", 0,
		[]string{"Failed to start discovery", "Discovery started"}, discoveryTimeout)
	return s.outcome(res, err, 1)
}

// Connect attempts a connection to addr.
func (s *Session) Connect(addr string) (bool, error) {
	res, err := s.run("connect "+addr, 0,
		[]string{"Failed to connect", "Connection successful"}, connectTimeout)
	return s.outcome(res, err, 1)
}

// Disconnect drops the connection to addr. bluetoothctl reports success
// in two different phrasings depending on version; either counts.
func (s *Session) Disconnect(addr string) (bool, error) {
	res, err := s.run("disconnect "+addr, 0,
		[]string{"Failed to disconnect", "Connected: no", "Successful disconnected"}, connectTimeout)
	return s.outcome(res, err, 1, 2)
}

// Pair attempts pairing with addr.
func (s *Session) Pair(addr string) (bool, error) {
	res, err := s.run("pair "+addr, pairSettle,
		[]string{"Failed to pair", "Pairing successful"}, defaultTimeout)
	return s.outcome(res, err, 1)
}

// Trust marks addr as trusted.
func (s *Session) Trust(addr string) (bool, error) {
	res, err := s.run("trust "+addr, trustSettle,
		[]string{"Failed to trust", "Trusted: yes"}, defaultTimeout)
	return s.outcome(res, err, 1)
}

// Untrust revokes trust from addr.
func (s *Session) Untrust(addr string) (bool, error) {
	res, err := s.run("untrust "+addr, trustSettle,
		[]string{"Failed to untrust", "untrust succeeded"}, defaultTimeout)
	return s.outcome(res, err, 1)
}

// Remove unpairs addr entirely.
func (s *Session) Remove(addr string) (bool, error) {
	res, err := s.run("remove "+addr, removeSettle,
		[]string{"not available", "Device has been removed"}, defaultTimeout)
	return s.outcome(res, err, 1)
}

// MakeDiscoverable makes the local adapter visible to scans.
func (s *Session) MakeDiscoverable() error {
	res, err := s.run("discoverable on", 0, []string{promptMarker}, defaultTimeout)
	if err != nil {
		return err
	}
	if res.Outcome == Closed {
		return s.closedErr()
	}
	return nil
}

// readLines sends a listing command and captures everything printed
// before the prompt is re-rendered. On a timeout the lines read so far
// are still returned; parsing them is best-effort anyway.
func (s *Session) readLines(command string) ([]string, error) {
	res, err := s.run(command, 0, []string{promptMarker}, defaultTimeout)
	if err != nil {
		return nil, err
	}
	if res.Outcome == Closed {
		return nil, s.closedErr()
	}
	text := strings.ReplaceAll(res.Before, "\r\n", "\n")
	return strings.Split(text, "\n"), nil
}

func (s *Session) deviceListing(command string) ([]Device, error) {
	lines, err := s.readLines(command)
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, line := range lines {
		if d, ok := ParseDeviceLine(line); ok {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// AvailableDevices lists every device the controller currently knows,
// paired and discovered alike. A full re-scan of the tool's output every
// call; nothing is cached.
func (s *Session) AvailableDevices() ([]Device, error) {
	return s.deviceListing("devices")
}

// PairedDevices lists only paired devices.
func (s *Session) PairedDevices() ([]Device, error) {
	return s.deviceListing("paired-devices")
}

// DeviceInfo returns the raw info lines for one address.
func (s *Session) DeviceInfo(addr string) ([]string, error) {
	return s.readLines("info " + addr)
}
