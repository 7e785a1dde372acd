package cmd

import (
	"fmt"

	"github.com/egannguyen/pharma-storefront/internal/repository/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the postgres schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Storage.Driver != "postgres" {
			return fmt.Errorf("migrate requires storage.driver=postgres, got %q", cfg.Storage.Driver)
		}

		db, err := postgres.InitDB(cmd.Context(), cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		return postgres.Migrate(cmd.Context(), db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
