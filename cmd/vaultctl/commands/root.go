// Package commands implements the vaultctl CLI: status, account, and
// quota subcommands against a running vaultfsd's database and HTTP API.
package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "vaultctl",
	Short:         "vaultctl - administer a vaultfs deployment",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/vaultfs/config.yaml)")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(quotaCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
