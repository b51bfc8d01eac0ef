package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/soundgrid/btbridge/internal/btctl"
	"github.com/soundgrid/btbridge/internal/config"
)

var infoAddr string

var devicesCmd = &cobra.Command{
	Use:          "devices",
	Short:        "List devices known to the local controller",
	Long:         "Spawns a private bluetoothctl session, prints the available and paired device listings, and exits. The MQTT bus is not touched.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runDevices,
}

func init() {
	devicesCmd.Flags().StringVar(&infoAddr, "info", "",
		"print the raw info lines for one device address instead")
	rootCmd.AddCommand(devicesCmd)
}

// loadOrDefault tolerates a missing config file at the default path:
// local inspection works out of the box.
func loadOrDefault() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil && errors.Is(err, os.ErrNotExist) && configPath == config.DefaultPath() {
		return config.Default(), nil
	}
	return cfg, err
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadOrDefault()
	if err != nil {
		return err
	}

	session, err := btctl.Start(cfg.Bluetooth.Command, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	if infoAddr != "" {
		lines, err := session.DeviceInfo(infoAddr)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				fmt.Println(line)
			}
		}
		return nil
	}

	available, err := session.AvailableDevices()
	if err != nil {
		return err
	}
	paired, err := session.PairedDevices()
	if err != nil {
		return err
	}

	header := lipgloss.NewStyle()
	addr := lipgloss.NewStyle()
	if term.IsTerminal(int(os.Stdout.Fd())) {
		header = header.Bold(true)
		addr = addr.Faint(true)
	}

	printListing := func(title string, devices []btctl.Device) {
		fmt.Println(header.Render(title))
		if len(devices) == 0 {
			fmt.Println("  (none)")
			return
		}
		for _, d := range devices {
			fmt.Printf("  %s  %s\n", addr.Render(d.Address), d.Name)
		}
	}

	printListing("Paired devices", paired)
	printListing("Available devices", available)
	return nil
}
