package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wedding-seatbot/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			if err := storage.Migrate(cfg.DatabaseDriver, cfg.DatabaseURL, logger); err != nil {
				return err
			}
			fmt.Println("✅ Migrations applied")
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <guests.csv>",
		Short: "Replace the guest list with the contents of a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open guest list: %w", err)
			}
			defer f.Close()

			guests, err := storage.ParseGuestsCSV(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if dryRun {
				fmt.Printf("%d guests parsed, nothing written\n", len(guests))
				return nil
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.ReplaceGuests(cmd.Context(), guests)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Imported %d guests\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the file without touching the database")
	return cmd
}
