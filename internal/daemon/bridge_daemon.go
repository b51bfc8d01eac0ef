// Package daemon runs the long-lived bridge process: one bluetoothctl
// session, one MQTT connection, one coordinator, until a signal or the
// session's death ends it.
package daemon

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/soundgrid/btbridge/internal/bridge"
	"github.com/soundgrid/btbridge/internal/btctl"
	"github.com/soundgrid/btbridge/internal/bus"
	"github.com/soundgrid/btbridge/internal/config"
)

// Daemon wires the bridge together and supervises its lifetime.
type Daemon struct {
	cfg    *config.Config
	logger *log.Logger
}

// New prepares a daemon for cfg. With foreground set, log output goes
// to stderr as well as the log file.
func New(cfg *config.Config, foreground bool) (*Daemon, error) {
	if err := os.MkdirAll(stateDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	logFile, err := os.OpenFile(LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	var w io.Writer = logFile
	if foreground {
		w = io.MultiWriter(logFile, os.Stderr)
	}
	return &Daemon{
		cfg:    cfg,
		logger: log.New(w, "", log.LstdFlags),
	}, nil
}

// Run starts the bridge and blocks until shutdown. It returns an error
// when the control session dies; a signal-initiated shutdown returns
// nil.
func (d *Daemon) Run() error {
	d.logger.Printf("btbridge starting (PID %d, site %s)", os.Getpid(), d.cfg.Device.SiteID)

	if err := os.MkdirAll(runtimeDir(), 0o700); err != nil {
		return fmt.Errorf("creating runtime directory: %w", err)
	}

	// Exclusive lock first: two bridges fighting over one bluetoothctl
	// and one set of topics would corrupt both.
	fileLock := flock.New(LockPath())
	locked, err := fileLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("btbridge already running (lock held by another process)")
	}
	defer func() { _ = fileLock.Unlock() }()

	if err := os.WriteFile(PidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer func() { _ = os.Remove(PidPath()) }()

	client, err := bus.NewClient(bus.Options{
		Broker:   d.cfg.MQTT.Broker,
		Username: d.cfg.MQTT.Username,
		Password: d.cfg.MQTT.Password,
	}, d.logger)
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer client.Close()
	d.logger.Printf("Connected to broker %s", d.cfg.MQTT.Broker)

	session, err := btctl.Start(d.cfg.Bluetooth.Command, d.logger)
	if err != nil {
		return fmt.Errorf("starting control session: %w", err)
	}
	defer session.Close()
	d.logger.Printf("Control session started (%s)", d.cfg.Bluetooth.Command)

	if d.cfg.Bluetooth.DiscoverableOnStart {
		if err := session.MakeDiscoverable(); err != nil {
			d.logger.Printf("Warning: making adapter discoverable: %v", err)
		}
	}

	coord := bridge.New(session, client, bridge.Config{
		SiteID:     d.cfg.Device.SiteID,
		Soundcards: d.cfg.Soundcards,
	}, d.logger)
	defer coord.Stop()

	if err := coord.Bind(client); err != nil {
		return fmt.Errorf("subscribing to command topics: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		d.logger.Printf("Received signal %v, shutting down", sig)
		return nil
	case <-session.Done():
		// The session is created once for the process lifetime; losing
		// it is fatal, and restarting is the supervisor's job.
		if err := session.Err(); err != nil {
			return fmt.Errorf("control session died: %w", err)
		}
		return fmt.Errorf("control session ended")
	}
}
