package btctl

import "strings"

// deviceToken starts the per-device segment of a listing line.
const deviceToken = "Device"

// noiseMarkers disqualify a line outright: ANSI color prefixes from the
// tool repainting its prompt, and "removed" status notices that share
// the Device token but describe no current device.
var noiseMarkers = []string{"[\x1b[0;", "removed"}

// Device is one entry from a bluetoothctl listing. Equality is on the
// full (address, name) pair; slices of Device are rebuilt fresh on every
// query and never persisted.
type Device struct {
	Address string `json:"mac_address"`
	Name    string `json:"name"`
}

// ParseDeviceLine extracts a device record from one raw listing line.
// Expected shape: "<prefix>Device AA:BB:CC:DD:EE:FF Some Name", where
// the name keeps any embedded spaces. This is a best-effort heuristic
// over semi-structured human-readable text; anything that does not fit
// is dropped silently.
func ParseDeviceLine(line string) (Device, bool) {
	for _, m := range noiseMarkers {
		if strings.Contains(line, m) {
			return Device{}, false
		}
	}
	i := strings.Index(line, deviceToken)
	if i < 0 {
		return Device{}, false
	}
	fields := strings.SplitN(line[i:], " ", 3)
	if len(fields) < 3 || fields[1] == "" || fields[2] == "" {
		return Device{}, false
	}
	return Device{Address: fields[1], Name: fields[2]}, true
}
