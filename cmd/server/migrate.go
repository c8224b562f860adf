package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if err := database.Migrate(cmd.Context(), a.db); err != nil {
				return err
			}
			a.log.Info("schema applied", zap.Int("statements", len(database.Statements())))
			return nil
		},
	}
}
