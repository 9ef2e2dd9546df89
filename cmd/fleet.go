package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxigrad/config"
	"github.com/kilianp07/taxigrad/core/taxistatus"
)

var fleetState string

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List taxis of a running simulation",
	RunE:  runFleetLs,
}

func init() {
	fleetLsCmd.Flags().StringVar(&fleetState, "state", "", "only list taxis in this state")
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is not configured")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	defer cancel()

	url := "http://" + cfg.HTTP.Addr + "/api/taxis"
	if fleetState != "" {
		url += "?state=" + fleetState
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fleet api: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			if _, ferr := fmt.Fprintf(cmd.ErrOrStderr(), "error while closing response: %v\n", err); ferr != nil {
				fmt.Println("failed to write to stderr:", ferr)
			}
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fleet api: %s", resp.Status)
	}
	var taxis []taxistatus.Status
	if err := json.NewDecoder(resp.Body).Decode(&taxis); err != nil {
		return fmt.Errorf("decode taxis: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tNODE\tFUEL\tSERVED\tCARRYING")
	for _, t := range taxis {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%d\t%s\n", t.TaxiID, t.State, t.Node, t.Fuel, t.Capacity, t.Served, t.Assigned)
	}
	return tw.Flush()
}
