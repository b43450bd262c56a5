// Command vaultctl is the vaultfs administration CLI: inspect server
// health, manage accounts, and view or adjust per-user quota overrides.
package main

import (
	"fmt"
	"os"

	"github.com/vaultfs/vaultfs/cmd/vaultctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
