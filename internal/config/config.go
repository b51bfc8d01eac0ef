// Package config loads the bridge's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration.
type Config struct {
	Device    DeviceConfig    `toml:"device"`
	MQTT      MQTTConfig      `toml:"mqtt"`
	Bluetooth BluetoothConfig `toml:"bluetooth"`

	// Soundcards maps a device's friendly name to the audio service
	// binding started when that device connects. Keys may contain
	// spaces, so they must be quoted in the file.
	Soundcards map[string]string `toml:"soundcards"`
}

// DeviceConfig identifies this satellite on the bus.
type DeviceConfig struct {
	SiteID string `toml:"site_id"`
}

// MQTTConfig locates the broker.
type MQTTConfig struct {
	Broker   string `toml:"broker"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// BluetoothConfig controls the wrapped control tool.
type BluetoothConfig struct {
	// Command is the control program to spawn. Anything that speaks the
	// bluetoothctl REPL protocol works.
	Command string `toml:"command"`

	// DiscoverableOnStart makes the local adapter visible as soon as
	// the session is up.
	DiscoverableOnStart bool `toml:"discoverable_on_start"`
}

// DefaultPath returns the standard config location, honoring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "btbridge", "config.toml")
}

// Default returns a config usable without any file: local broker,
// default site, bluetoothctl from PATH.
func Default() *Config {
	return &Config{
		Device:    DeviceConfig{SiteID: "default"},
		MQTT:      MQTTConfig{Broker: "tcp://127.0.0.1:1883"},
		Bluetooth: BluetoothConfig{Command: "bluetoothctl"},
	}
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields no default can save.
func (c *Config) Validate() error {
	if c.Device.SiteID == "" {
		return fmt.Errorf("device.site_id must not be empty")
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker must not be empty")
	}
	if c.Bluetooth.Command == "" {
		return fmt.Errorf("bluetooth.command must not be empty")
	}
	return nil
}
