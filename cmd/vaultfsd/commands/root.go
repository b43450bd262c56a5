// Package commands implements the vaultfsd CLI: start the server, print
// version information, and validate a configuration file.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "vaultfsd",
	Short: "vaultfs - multi-tenant chunked-upload and range-download storage service",
	Long: `vaultfsd serves chunked file uploads and range-aware downloads
across a hot/cold filesystem tier, with per-user
quotas and rate limiting.

Use "vaultfsd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/vaultfs/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("vaultfsd %s (commit %s, built %s)\n", Version, Commit, Date)
		return nil
	},
}
