package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ilkoid/bellhop/pkg/store/sqlite"
	"github.com/ilkoid/bellhop/pkg/utils"
)

var seedOpts = sqlite.DefaultSeedOptions()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and fill the database with demo data",
	Long:  "Seed replaces hotel settings, services, rooms and rates in store.path with generated demo data. Saved conversation usage is kept.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer utils.Close()

		store, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Seed(cmd.Context(), seedOpts)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		utils.Info("Demo data seeded", "path", cfg.Store.Path, "rooms", stats.Rooms, "rates", stats.Rates)
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d rooms, %d rates (%s to %s)\n",
			cfg.Store.Path, stats.Rooms, stats.Rates, seedOpts.From, seedOpts.To)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.From, "from", seedOpts.From, "first date with rates (YYYY-MM-DD)")
	seedCmd.Flags().StringVar(&seedOpts.To, "to", seedOpts.To, "last date with rates (YYYY-MM-DD)")
	seedCmd.Flags().IntVar(&seedOpts.Rooms, "rooms", seedOpts.Rooms, "number of rooms")
	seedCmd.Flags().Uint64Var(&seedOpts.Seed, "seed", seedOpts.Seed, "random seed for bookings")
	rootCmd.AddCommand(seedCmd)
}
