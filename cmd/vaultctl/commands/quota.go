package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vaultfs/vaultfs/internal/cliout"
	"github.com/vaultfs/vaultfs/internal/config"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/store"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "View or override a user's quota",
}

var quotaShowCmd = &cobra.Command{
	Use:   "show <userID>",
	Short: "Show a user's quota usage and limits",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuotaShow,
}

var quotaSetCmd = &cobra.Command{
	Use:   "set <userID> <maxStorageBytes>",
	Short: "Override a user's max-storage limit (-1 for unlimited)",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuotaSet,
}

func init() {
	quotaCmd.AddCommand(quotaShowCmd)
	quotaCmd.AddCommand(quotaSetCmd)
}

func openStore() (*store.Store, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Database)
}

func runQuotaShow(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	q, err := db.GetOrCreateQuota(context.Background(), args[0])
	if err != nil {
		return err
	}
	table := cliout.NewTable("METRIC", "USAGE", "LIMIT")
	table.AddRow("storage", fmt.Sprintf("%d", q.Usage.Storage), limitString(q.Limits.MaxStorage))
	table.AddRow("files", fmt.Sprintf("%d", q.Usage.Files), limitString(q.Limits.MaxFiles))
	table.AddRow("bandwidth (daily)", fmt.Sprintf("%d", q.Usage.Bandwidth.Daily), "-")
	table.Print(cmd.OutOrStdout())
	return nil
}

func limitString(v *int64) string {
	if v == nil {
		return "(role default)"
	}
	if *v == models.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", *v)
}

func runQuotaSet(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	maxStorage, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid maxStorageBytes: %w", err)
	}

	ctx := context.Background()
	q, err := db.GetOrCreateQuota(ctx, args[0])
	if err != nil {
		return err
	}
	q.Limits.MaxStorage = &maxStorage
	if err := db.UpdateQuota(ctx, q); err != nil {
		return err
	}
	cmd.Printf("updated quota for %s: max_storage=%d\n", args[0], maxStorage)
	return nil
}
