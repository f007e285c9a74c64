package main

import (
	"fmt"

	"github.com/cuemby/cityfix/pkg/auth"
	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/users"
	"github.com/spf13/cobra"
)

// Admin commands
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	Long: `Create an administrator directly in the database.

Run this once to bootstrap the first admin; further staff and admins can be
managed over the API or with 'cityfix apply'. The server must be stopped,
since the database is opened exclusively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		svc, closeFn, err := openAccounts(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		user, err := svc.CreateAdmin(users.AccountInput{Name: name, Email: email, Password: password})
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		fmt.Printf("✓ Admin created: %s (ID: %s)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().String("name", "Administrator", "Display name")
	adminCreateCmd.Flags().String("email", "", "Login email (required)")
	adminCreateCmd.Flags().String("password", "", "Password, at least 6 characters (required)")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
}

// openAccounts opens the store for offline account management. Account
// commands never issue tokens, so no token manager is configured.
func openAccounts(cmd *cobra.Command) (*users.Service, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewBoltStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage (is the server running?): %w", err)
	}
	broker := events.NewBroker()
	broker.Start()

	svc := users.NewService(store, auth.NewHasher(cfg.Auth.BcryptCost), nil, broker)
	return svc, func() {
		broker.Stop()
		store.Close()
	}, nil
}
