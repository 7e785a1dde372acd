package cmd

import (
	"fmt"

	"github.com/egannguyen/pharma-storefront/internal/repository/postgres"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <order-id>",
	Short: "Print the recorded events of an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Storage.Driver != "postgres" {
			return fmt.Errorf("history requires storage.driver=postgres, got %q", cfg.Storage.Driver)
		}

		db, err := postgres.InitDB(cmd.Context(), cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := postgres.NewEventLog(db).LoadEvents(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintf(out, "no events recorded for order %s\n", args[0])
			return nil
		}
		for _, r := range records {
			fmt.Fprintf(out, "%3d  %s  %-20s %s\n", r.Version, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), r.EventType, r.Payload)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
