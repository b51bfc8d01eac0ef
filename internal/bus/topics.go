package bus

// Topic layout, fixed by the other parties on the bus: inbound commands
// arrive on bluetooth/<op>, results go to bluetooth/result/<name>,
// device-list snapshots to bluetooth/update/deviceLists, and the audio
// service is driven through snapclient/<site>/{start,stop}Service.

// Topics builds every topic the bridge speaks on. The zero value is
// usable for everything that does not involve the site id.
type Topics struct {
	SiteID string
}

// Command is the inbound topic for one operation kind, e.g. "connect".
func (t Topics) Command(op string) string {
	return "bluetooth/" + op
}

// Result is the outbound topic for one result event, e.g.
// "deviceConnect".
func (t Topics) Result(name string) string {
	return "bluetooth/result/" + name
}

// DeviceLists is the outbound topic for full device-list snapshots.
func (t Topics) DeviceLists() string {
	return "bluetooth/update/deviceLists"
}

// StartService addresses the audio service bound to this site.
func (t Topics) StartService() string {
	return "snapclient/" + t.SiteID + "/startService"
}

// StopService addresses the audio service bound to this site.
func (t Topics) StopService() string {
	return "snapclient/" + t.SiteID + "/stopService"
}
