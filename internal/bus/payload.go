package bus

import "github.com/soundgrid/btbridge/internal/btctl"

// Wire payloads. Field names are part of the bus protocol and must not
// change: other site components consume them by verbatim key.

// AddrCommand is the inbound payload of every per-device command.
type AddrCommand struct {
	Addr string `json:"addr"`
}

// Result reports one operation's boolean outcome. Addr is empty for
// site-wide operations like discovery.
type Result struct {
	SiteID string `json:"siteId"`
	Result bool   `json:"result"`
	Addr   string `json:"addr,omitempty"`
}

// DeviceLists is the full device-list snapshot published after every
// state-changing operation.
type DeviceLists struct {
	SiteID    string         `json:"siteId"`
	Available []btctl.Device `json:"available_devices"`
	Paired    []btctl.Device `json:"paired_devices"`
}

// Discovered carries the post-discovery set difference: available
// devices that are not paired.
type Discovered struct {
	SiteID       string         `json:"siteId"`
	Discoverable []btctl.Device `json:"discoverable_devices"`
}

// Soundcard asks the audio service to start or stop one binding.
type Soundcard struct {
	Soundcard string `json:"soundcard"`
}
