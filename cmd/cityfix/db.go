package main

import (
	"fmt"
	"os"

	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/spf13/cobra"
)

// Database maintenance commands; the server must be stopped
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
}

var dbReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the email and checkout session indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Reindex()
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Reindexed %d documents\n", n)
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a consistent copy of the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := os.OpenFile(output, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to create backup file: %w", err)
		}
		n, err := store.Backup(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(output)
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Backup written: %s (%d bytes)\n", output, n)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbReindexCmd)
	dbCmd.AddCommand(dbBackupCmd)

	dbBackupCmd.Flags().StringP("output", "o", "", "Backup file path, must not exist (required)")
	_ = dbBackupCmd.MarkFlagRequired("output")
}

func openStore(cmd *cobra.Command) (*storage.BoltStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewBoltStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage (is the server running?): %w", err)
	}
	return store, nil
}
