package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxigrad/app"
	"github.com/kilianp07/taxigrad/config"
	"github.com/kilianp07/taxigrad/infra/logger"
	"github.com/kilianp07/taxigrad/pkg/export"
)

var (
	cfgPath string
	summary bool
)

var rootCmd = &cobra.Command{
	Use:   "taxigrad",
	Short: "Gradient field taxi dispatch simulator",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.Flags().BoolVar(&summary, "summary", true, "print run statistics when the simulation ends")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	if err := svc.Run(ctx); err != nil {
		return err
	}
	if !summary {
		return nil
	}
	return export.WriteSummary(cmd.OutOrStdout(), svc.Engine.Statistics().Summary())
}
