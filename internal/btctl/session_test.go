package btctl

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// startFake wires a Session to a scripted stand-in for bluetoothctl.
// handler receives each command line and writes whatever the tool would
// print in response.
func startFake(t *testing.T, handler func(cmd string, out io.Writer)) (*Session, net.Conn) {
	t.Helper()
	ours, theirs := net.Pipe()
	s := Attach(ours, nil)
	t.Cleanup(func() {
		theirs.Close()
		ours.Close()
	})
	go func() {
		scanner := bufio.NewScanner(theirs)
		for scanner.Scan() {
			handler(scanner.Text(), theirs)
		}
	}()
	return s, theirs
}

func TestExpectAnyConsumesThroughMatch(t *testing.T) {
	ours, theirs := net.Pipe()
	defer theirs.Close()
	s := Attach(ours, nil)

	go func() {
		io.WriteString(theirs, "preamble ok trailer")
	}()

	res := s.ExpectAny([]string{"fail", "ok"}, time.Second)
	if res.Outcome != Matched || res.Index != 1 {
		t.Fatalf("result = %+v, want match on index 1", res)
	}
	if res.Before != "preamble " {
		t.Errorf("Before = %q, want %q", res.Before, "preamble ")
	}

	// Only the text through the match was consumed; the trailer is still
	// there for the next call.
	res = s.ExpectAny([]string{"trailer"}, time.Second)
	if res.Outcome != Matched {
		t.Fatalf("trailer not found after first match: %+v", res)
	}
}

func TestExpectAnyTimeoutLeavesSessionUsable(t *testing.T) {
	ours, theirs := net.Pipe()
	defer theirs.Close()
	s := Attach(ours, nil)

	go io.WriteString(theirs, "noise ")

	res := s.ExpectAny([]string{"absent"}, 50*time.Millisecond)
	if res.Outcome != TimedOut {
		t.Fatalf("result = %+v, want TimedOut", res)
	}

	go io.WriteString(theirs, "now present")

	res = s.ExpectAny([]string{"present"}, time.Second)
	if res.Outcome != Matched {
		t.Fatalf("session unusable after timeout: %+v", res)
	}
	if !strings.Contains(res.Before, "noise") {
		t.Errorf("Before = %q, want earlier buffered text retained", res.Before)
	}
}

func TestExpectAnyStreamClosed(t *testing.T) {
	ours, theirs := net.Pipe()
	s := Attach(ours, nil)

	done := make(chan Result, 1)
	go func() { done <- s.ExpectAny([]string{"never"}, 5*time.Second) }()

	theirs.Close()

	select {
	case res := <-done:
		if res.Outcome != Closed {
			t.Fatalf("result = %+v, want Closed", res)
		}
	case <-time.After(time.Second):
		t.Fatal("expect did not resolve on stream close")
	}

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after stream end")
	}
}

func TestConnectOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"success", "Attempting to connect\r\nConnection successful\r\n", true},
		{"failure", "Failed to connect: org.bluez.Error\r\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := startFake(t, func(cmd string, out io.Writer) {
				if strings.HasPrefix(cmd, "connect ") {
					io.WriteString(out, tt.response)
				}
			})
			ok, err := s.Connect("AA:BB:CC:DD:EE:FF")
			if err != nil {
				t.Fatalf("Connect: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Connect = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestDisconnectAcceptsEitherSuccessPhrase(t *testing.T) {
	for _, phrase := range []string{"Connected: no", "Successful disconnected"} {
		s, _ := startFake(t, func(cmd string, out io.Writer) {
			io.WriteString(out, phrase+"\r\n")
		})
		ok, err := s.Disconnect("AA:BB:CC:DD:EE:FF")
		if err != nil {
			t.Fatalf("Disconnect: %v", err)
		}
		if !ok {
			t.Errorf("Disconnect with %q = false, want true", phrase)
		}
	}
}

func TestCommandOnClosedSessionReportsErrSessionClosed(t *testing.T) {
	ours, theirs := net.Pipe()
	s := Attach(ours, nil)
	theirs.Close()
	<-s.Done()

	_, err := s.Connect("AA:BB:CC:DD:EE:FF")
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed", err)
	}
}

func TestAvailableDevicesParsesListing(t *testing.T) {
	s, _ := startFake(t, func(cmd string, out io.Writer) {
		if cmd == "devices" {
			io.WriteString(out,
				"Device AA:BB:CC:DD:EE:FF JBL GO 2\r\n"+
					"Discovery started\r\n"+
					"Device 00:11:22:33:44:55 Keyboard\r\n"+
					"\x1b[0;94m[bluetooth]\x1b[0m# ")
		}
	})

	devices, err := s.AvailableDevices()
	if err != nil {
		t.Fatalf("AvailableDevices: %v", err)
	}
	want := []Device{
		{Address: "AA:BB:CC:DD:EE:FF", Name: "JBL GO 2"},
		{Address: "00:11:22:33:44:55", Name: "Keyboard"},
	}
	if len(devices) != len(want) {
		t.Fatalf("got %d devices (%v), want %d", len(devices), devices, len(want))
	}
	for i := range want {
		if devices[i] != want[i] {
			t.Errorf("device[%d] = %+v, want %+v", i, devices[i], want[i])
		}
	}
}

func TestWaitForDisconnectConcurrentWithForeground(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:FF"
	s, theirs := startFake(t, func(cmd string, out io.Writer) {
		if cmd == "devices" {
			io.WriteString(out, "Device 00:11:22:33:44:55 Other\r\n\x1b[0;94m# ")
		}
	})

	fired := make(chan error, 1)
	go func() {
		fired <- s.WaitForDisconnect(context.Background(), addr)
	}()

	// A foreground listing consumes its output; the watcher must still
	// see the disconnect marker that arrives afterwards.
	if _, err := s.AvailableDevices(); err != nil {
		t.Fatalf("AvailableDevices: %v", err)
	}

	select {
	case err := <-fired:
		t.Fatalf("watcher fired early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	go io.WriteString(theirs, "\x1b[0;93m[CHG]\x1b[0m Device "+addr+" Connected: no\r\n")

	select {
	case err := <-fired:
		if err != nil {
			t.Fatalf("WaitForDisconnect: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not fire on disconnect marker")
	}
}

func TestWaitForDisconnectContextCancel(t *testing.T) {
	ours, theirs := net.Pipe()
	defer theirs.Close()
	s := Attach(ours, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.WaitForDisconnect(ctx, "AA:BB:CC:DD:EE:FF") }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForDisconnect ignored context cancellation")
	}
}
