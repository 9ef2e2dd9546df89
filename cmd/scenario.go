package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxigrad/pkg/export"
	"github.com/kilianp07/taxigrad/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Scripted scenarios",
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Play a scenario file and print its statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenario,
}

func init() {
	scenarioCmd.AddCommand(scenarioRunCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := scenarios.Load(args[0])
	if err != nil {
		return err
	}
	res, err := scenarios.Run(cmd.Context(), sc)
	if res == nil {
		return err
	}
	if err != nil {
		if _, ferr := fmt.Fprintf(cmd.ErrOrStderr(), "step failures: %v\n", err); ferr != nil {
			fmt.Println("failed to write to stderr:", ferr)
		}
	}
	return export.WriteSummary(cmd.OutOrStdout(), res.Engine.Statistics().Summary())
}
