// Command uploader runs the DBS3 block-upload poller: it groups produced
// files into capacity-bounded blocks and publishes them to the remote
// bookkeeping catalog.
package main

import (
	"fmt"
	"os"

	"github.com/dmwm/dbs3-uploader/cmd/uploader/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
