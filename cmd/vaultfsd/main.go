// Command vaultfsd runs the vaultfs chunked-upload and range-download
// storage service.
package main

import (
	"fmt"
	"os"

	"github.com/vaultfs/vaultfs/cmd/vaultfsd/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
