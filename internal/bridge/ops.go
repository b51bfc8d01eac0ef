package bridge

import (
	"time"

	"github.com/soundgrid/btbridge/internal/btctl"
	"github.com/soundgrid/btbridge/internal/bus"
)

// runDiscover starts scanning, reports the result, and after the settle
// window publishes a device-list snapshot followed by the discoverable
// set.
func (c *Coordinator) runDiscover() {
	ok, err := c.session.StartDiscovery()
	if err != nil {
		c.logger.Printf("Warning: starting discovery: %v", err)
		ok = false
	}
	c.publish(c.topics.Result("devicesDiscover"), bus.Result{SiteID: c.siteID, Result: ok})
	if !ok {
		return
	}

	time.Sleep(c.discoverSettle)
	c.publishDeviceLists()

	available, err := c.session.AvailableDevices()
	if err != nil {
		c.logger.Printf("Warning: listing available devices: %v", err)
		return
	}
	paired, err := c.session.PairedDevices()
	if err != nil {
		c.logger.Printf("Warning: listing paired devices: %v", err)
		return
	}
	c.publish(c.topics.Result("devicesDiscovered"), bus.Discovered{
		SiteID:       c.siteID,
		Discoverable: Discoverable(available, paired),
	})
}

func (c *Coordinator) runConnect(addr string) {
	ok, err := c.session.Connect(addr)
	if err != nil {
		c.logger.Printf("Warning: connect %s: %v", addr, err)
		ok = false
	}
	if ok {
		c.noteConnected(addr)
	}
	c.publish(c.topics.Result("deviceConnect"), bus.Result{SiteID: c.siteID, Result: ok, Addr: addr})
	c.publishDeviceLists()
}

func (c *Coordinator) runDisconnect(addr string) {
	ok, err := c.session.Disconnect(addr)
	if err != nil {
		c.logger.Printf("Warning: disconnect %s: %v", addr, err)
		ok = false
	}
	if ok {
		c.cleanupConnected(addr)
	}
	c.publish(c.topics.Result("deviceDisconnect"), bus.Result{SiteID: c.siteID, Result: ok, Addr: addr})
	c.publishDeviceLists()
}

func (c *Coordinator) runRemove(addr string) {
	ok, err := c.session.Remove(addr)
	if err != nil {
		c.logger.Printf("Warning: remove %s: %v", addr, err)
		ok = false
	}
	if ok {
		c.cleanupConnected(addr)
	}
	c.publish(c.topics.Result("deviceRemove"), bus.Result{SiteID: c.siteID, Result: ok, Addr: addr})
	c.publishDeviceLists()
}

func (c *Coordinator) runPair(addr string) {
	ok, err := c.session.Pair(addr)
	if err != nil {
		c.logger.Printf("Warning: pair %s: %v", addr, err)
		ok = false
	}
	c.publish(c.topics.Result("devicePair"), bus.Result{SiteID: c.siteID, Result: ok, Addr: addr})
}

func (c *Coordinator) runTrust(addr string) {
	ok, err := c.session.Trust(addr)
	if err != nil {
		c.logger.Printf("Warning: trust %s: %v", addr, err)
		ok = false
	}
	c.publish(c.topics.Result("deviceTrust"), bus.Result{SiteID: c.siteID, Result: ok, Addr: addr})
}

func (c *Coordinator) runUntrust(addr string) {
	ok, err := c.session.Untrust(addr)
	if err != nil {
		c.logger.Printf("Warning: untrust %s: %v", addr, err)
		ok = false
	}
	c.publish(c.topics.Result("deviceUntrust"), bus.Result{SiteID: c.siteID, Result: ok, Addr: addr})
}

// noteConnected records a fresh connection: resolve the device's name
// from a fresh listing, store it, start the disconnect watcher if one is
// not already running, and kick the bound audio service.
func (c *Coordinator) noteConnected(addr string) {
	c.mu.Lock()
	already := c.connected.Contains(addr)
	c.mu.Unlock()
	if already {
		return
	}

	name, err := c.resolveName(addr)
	if err != nil {
		// The device connected but vanished from scan results before we
		// could read its name. Without a name there is no store entry,
		// no watcher and no soundcard binding; the connect result is
		// still reported by the caller.
		c.logger.Printf("Warning: connected %s: %v", addr, err)
		return
	}

	c.mu.Lock()
	c.connected.Insert(addr, name)
	_, watching := c.watched[addr]
	if !watching {
		c.watched[addr] = struct{}{}
	}
	c.mu.Unlock()

	if !watching {
		go c.watchDisconnect(addr)
	}
	c.startSound(name)
}

// resolveName finds addr's friendly name in a fresh available-devices
// listing.
func (c *Coordinator) resolveName(addr string) (string, error) {
	available, err := c.session.AvailableDevices()
	if err != nil {
		return "", err
	}
	for _, d := range available {
		if d.Address == addr {
			return d.Name, nil
		}
	}
	return "", ErrNameNotFound
}

// cleanupConnected removes addr from the store and stops its bound
// audio service, if it was present at all.
func (c *Coordinator) cleanupConnected(addr string) {
	if name, ok := c.takeConnected(addr); ok {
		c.stopSound(name)
	}
}

// watchDisconnect blocks until bluetoothctl reports addr disconnecting,
// then reconciles state. If an explicit disconnect or remove already
// cleaned the address up, the guard in takeConnected makes this a no-op:
// no second result event, no second snapshot.
func (c *Coordinator) watchDisconnect(addr string) {
	if err := c.session.WaitForDisconnect(c.ctx, addr); err != nil {
		c.mu.Lock()
		delete(c.watched, addr)
		c.mu.Unlock()
		return
	}

	time.Sleep(c.disconnectSettle)

	name, ok := c.takeConnected(addr)
	if !ok {
		return
	}
	c.stopSound(name)
	c.publish(c.topics.Result("deviceDisconnect"), bus.Result{SiteID: c.siteID, Result: true, Addr: addr})
	c.publishDeviceLists()
}

// publishDeviceLists publishes a fresh full snapshot of available and
// paired devices. Read-only against the session, safe at any time.
func (c *Coordinator) publishDeviceLists() {
	available, err := c.session.AvailableDevices()
	if err != nil {
		c.logger.Printf("Warning: listing available devices: %v", err)
		return
	}
	paired, err := c.session.PairedDevices()
	if err != nil {
		c.logger.Printf("Warning: listing paired devices: %v", err)
		return
	}
	c.publish(c.topics.DeviceLists(), bus.DeviceLists{
		SiteID:    c.siteID,
		Available: nonNil(available),
		Paired:    nonNil(paired),
	})
}

// Discoverable returns available minus paired, keyed on full
// (address, name) equality.
func Discoverable(available, paired []btctl.Device) []btctl.Device {
	out := make([]btctl.Device, 0, len(available))
	for _, d := range available {
		seen := false
		for _, p := range paired {
			if d == p {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, d)
		}
	}
	return out
}

// nonNil keeps empty listings as [] on the wire rather than null.
func nonNil(devices []btctl.Device) []btctl.Device {
	if devices == nil {
		return []btctl.Device{}
	}
	return devices
}
