package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptui/internal/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default categories and the admin account",
	Long: `Insert the default categories and the admin account from ADMIN_EMAIL,
ADMIN_USERNAME and ADMIN_PASSWORD. Existing rows are left untouched, so the
command is safe to run repeatedly. Migrations must have been applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(cmd.Context(), cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		return database.Seed(cmd.Context(), db, seedAdmin())
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seedAdmin() database.SeedAdmin {
	return database.SeedAdmin{
		Email:    cfg.AdminEmail,
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}
}
