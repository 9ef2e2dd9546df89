package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxigrad/config"
	"github.com/kilianp07/taxigrad/core/triplog"
)

var (
	tripsTaxi string
	tripsRun  string
)

var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "Trip log commands",
}

var tripsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Print completed trips as JSON lines",
	RunE:  runTripsLs,
}

func init() {
	tripsLsCmd.Flags().StringVar(&tripsTaxi, "taxi", "", "only trips of this taxi")
	tripsLsCmd.Flags().StringVar(&tripsRun, "run", "", "only trips of this run")
	tripsCmd.AddCommand(tripsLsCmd)
	rootCmd.AddCommand(tripsCmd)
}

func runTripsLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := triplog.Open(cfg.TripLog.Options())
	if err != nil {
		return fmt.Errorf("open trip log: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			if _, ferr := fmt.Fprintf(cmd.ErrOrStderr(), "error while closing trip log: %v\n", err); ferr != nil {
				fmt.Println("failed to write to stderr:", ferr)
			}
		}
	}()
	recs, err := store.Query(cmd.Context(), triplog.Query{TaxiID: tripsTaxi, RunID: tripsRun})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
