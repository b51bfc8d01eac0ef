package cmd

import (
	"github.com/spf13/cobra"

	"github.com/soundgrid/btbridge/internal/config"
	"github.com/soundgrid/btbridge/internal/daemon"
)

var serveForeground bool

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the bridge daemon",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		d, err := daemon.New(cfg, serveForeground)
		if err != nil {
			return err
		}
		return d.Run()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveForeground, "foreground", false,
		"log to stderr in addition to the log file")
	rootCmd.AddCommand(serveCmd)
}
