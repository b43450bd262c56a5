package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultfs/vaultfs/internal/cliout"
	"github.com/vaultfs/vaultfs/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check vaultfsd's /health endpoint",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + cfg.HTTP.Address + "/health")
	healthy := err == nil && resp != nil && resp.StatusCode == http.StatusOK
	var body map[string]string
	if healthy {
		defer resp.Body.Close()
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}

	cliout.KeyValue(cmd.OutOrStdout(), [][2]string{
		{"address", cfg.HTTP.Address},
		{"healthy", fmt.Sprintf("%t", healthy)},
		{"status", body["status"]},
	})
	if !healthy {
		return fmt.Errorf("vaultfsd did not respond healthy at %s", cfg.HTTP.Address)
	}
	return nil
}
