package main

import (
	"github.com/spf13/cobra"

	"github.com/meetmatch/matchcore/internal/config"
	"github.com/meetmatch/matchcore/internal/db"
	"github.com/meetmatch/matchcore/internal/logger"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reset the database and load demo profiles",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.InitFromConfig(cfg)

			database, err := db.NewDB(cfg)
			if err != nil {
				return err
			}
			if err := db.SeedTestData(database); err != nil {
				return err
			}

			logger.Info("seeding completed")
			return nil
		},
	}
}
