package daemon

import (
	"os"
	"path/filepath"
)

// runtimeDir holds the lock and pid files; it does not survive reboots,
// which is exactly right for both.
func runtimeDir() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, "btbridge")
}

// stateDir holds the log file.
func stateDir() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".local", "state")
	}
	return filepath.Join(dir, "btbridge")
}

// LockPath is the daemon's single-instance lock file.
func LockPath() string { return filepath.Join(runtimeDir(), "btbridge.lock") }

// PidPath is the daemon's pid file.
func PidPath() string { return filepath.Join(runtimeDir(), "btbridge.pid") }

// LogPath is the daemon's log file.
func LogPath() string { return filepath.Join(stateDir(), "btbridge.log") }
