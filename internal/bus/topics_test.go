package bus

import (
	"encoding/json"
	"testing"

	"github.com/soundgrid/btbridge/internal/btctl"
)

func TestTopicStrings(t *testing.T) {
	topics := Topics{SiteID: "living-room"}

	tests := []struct {
		got  string
		want string
	}{
		{topics.Command("discover"), "bluetooth/discover"},
		{topics.Command("connect"), "bluetooth/connect"},
		{topics.Result("deviceConnect"), "bluetooth/result/deviceConnect"},
		{topics.Result("devicesDiscover"), "bluetooth/result/devicesDiscover"},
		{topics.DeviceLists(), "bluetooth/update/deviceLists"},
		{topics.StartService(), "snapclient/living-room/startService"},
		{topics.StopService(), "snapclient/living-room/stopService"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestDeviceListsWireFormat(t *testing.T) {
	payload := DeviceLists{
		SiteID:    "site",
		Available: []btctl.Device{{Address: "AA:BB:CC:DD:EE:FF", Name: "JBL GO 2"}},
		Paired:    []btctl.Device{},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"siteId":"site","available_devices":[{"mac_address":"AA:BB:CC:DD:EE:FF","name":"JBL GO 2"}],"paired_devices":[]}`
	if string(data) != want {
		t.Errorf("wire format drifted:\n got %s\nwant %s", data, want)
	}
}
