package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meetmatch/matchcore/internal/config"
	"github.com/meetmatch/matchcore/internal/db"
	"github.com/meetmatch/matchcore/internal/logger"
	"github.com/meetmatch/matchcore/internal/matching"
	"github.com/meetmatch/matchcore/internal/repository"
)

// scoreCmd prints how the configured scorer rates one user for another.
// Handy when tuning weights against real profiles.
func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <user-id> <candidate-id>",
		Short: "Print the score breakdown of a candidate for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.InitFromConfig(cfg)

			database, err := db.NewDB(cfg)
			if err != nil {
				return err
			}
			users := repository.NewUserRepository(database)

			user, err := users.GetUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			candidate, err := users.GetUser(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			scorer := matching.NewScorer(cfg.Match)
			b := scorer.Score(user, candidate)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "location     %.4f\n", b.Location)
			fmt.Fprintf(out, "interests    %.4f\n", b.Interests)
			fmt.Fprintf(out, "preferences  %.4f\n", b.Preferences)
			fmt.Fprintf(out, "total        %.4f (threshold %.2f, hard gate %t)\n", b.Total, scorer.Threshold(), scorer.HardGate())
			fmt.Fprintf(out, "accepted     %t\n", scorer.Accept(b))
			return nil
		},
	}
}
