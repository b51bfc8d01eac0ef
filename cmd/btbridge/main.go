// btbridge bridges a bluetoothctl session to an MQTT bus.
package main

import (
	"os"

	"github.com/soundgrid/btbridge/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
