package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultfs/vaultfs/internal/accounts"
	"github.com/vaultfs/vaultfs/internal/cliout"
	"github.com/vaultfs/vaultfs/internal/config"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/store"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage vaultfs user accounts",
}

var accountRole string

var accountCreateCmd = &cobra.Command{
	Use:   "create <email> <password>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountCreate,
}

var accountShowCmd = &cobra.Command{
	Use:   "show <email>",
	Short: "Show a user account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountShow,
}

func init() {
	accountCreateCmd.Flags().StringVar(&accountRole, "role", string(models.RoleFree), "account role (free|premium|admin)")
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountShowCmd)
}

func openAccounts() (*accounts.Service, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	return accounts.New(db), nil
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	svc, err := openAccounts()
	if err != nil {
		return err
	}
	role := models.Role(accountRole)
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q", accountRole)
	}
	user, err := svc.Register(context.Background(), args[0], args[1], role)
	if err != nil {
		return err
	}
	cmd.Printf("created account %s (id %s, role %s)\n", user.Email, user.ID, user.Role)
	return nil
}

func runAccountShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	user, err := db.GetUserByEmail(context.Background(), args[0])
	if err != nil {
		return err
	}
	cliout.KeyValue(cmd.OutOrStdout(), [][2]string{
		{"id", user.ID},
		{"email", user.Email},
		{"role", string(user.Role)},
		{"active", fmt.Sprintf("%t", user.IsActive)},
		{"failed_logins", fmt.Sprintf("%d", user.FailedLoginAttempts)},
	})
	return nil
}
