package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fleetguard/fleetguard/app"
	"github.com/fleetguard/fleetguard/config"
	"github.com/fleetguard/fleetguard/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "fleetguard",
	Short: "Fleet telemetry aggregation and alert latching service",
	Long: "fleetguard ingests vehicle telemetry over HTTP and MQTT, latches\n" +
		"driver drowsiness alerts, serves fleet snapshots and dispatches\n" +
		"commands back to the vehicles.",
	RunE: run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New("main")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()

	log.Infof("starting with config %s", cfgPath)
	err = svc.Run(ctx)
	if err == nil {
		log.Infof("shutdown complete")
	}
	return err
}
