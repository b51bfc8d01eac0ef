// Package cmd provides the btbridge CLI.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/soundgrid/btbridge/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "btbridge",
	Short:   "Bridge bluetoothctl to an MQTT bus",
	Version: Version,
	Long: `btbridge drives an interactive bluetoothctl session and mirrors
pairing, connection and discovery state onto an MQTT bus for the other
components of a multi-room audio site.`,
}

// Execute runs the root command and returns an exit code for main.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(),
		"path to the config file")
}
