package commands

import (
	"github.com/spf13/cobra"

	"github.com/vaultfs/vaultfs/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return err
		}
		cmd.Printf("configuration OK\n")
		cmd.Printf("  http:          %s\n", cfg.HTTP.Address)
		cmd.Printf("  database:      %s\n", cfg.Database.Driver)
		cmd.Printf("  storage hot:   %s\n", cfg.Storage.HotPath)
		cmd.Printf("  storage cold:  %s\n", cfg.Storage.ColdPath)
		return nil
	},
}
