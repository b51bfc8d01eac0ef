package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the btbridge release version.
const Version = "0.2.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the btbridge version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("btbridge " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
