package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetguard/fleetguard/infra/logger"
	"github.com/fleetguard/fleetguard/simulator"
)

var simFlags struct {
	server       string
	size         int
	drowsyChance float64
	degradedPct  float64
	heartbeat    time.Duration
	poll         time.Duration
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run simulated vehicle agents against a running engine",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simFlags.server, "server", "http://localhost:8080", "engine base URL")
	simulateCmd.Flags().IntVar(&simFlags.size, "vehicles", 3, "number of agents")
	simulateCmd.Flags().Float64Var(&simFlags.drowsyChance, "drowsy-chance", 0.05, "episode probability per heartbeat")
	simulateCmd.Flags().Float64Var(&simFlags.degradedPct, "degraded-pct", 0, "share of agents omitting driver identity")
	simulateCmd.Flags().DurationVar(&simFlags.heartbeat, "heartbeat", 0, "heartbeat interval override")
	simulateCmd.Flags().DurationVar(&simFlags.poll, "poll", 0, "command poll interval override")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New("simulator")
	agents := simulator.GenerateFleet(simulator.FleetConfig{
		Server:       simFlags.server,
		Size:         simFlags.size,
		DrowsyChance: simFlags.drowsyChance,
		DegradedPct:  simFlags.degradedPct,
		Heartbeat:    simFlags.heartbeat,
		Poll:         simFlags.poll,
	}, log)
	log.Infof("running %d agents against %s", len(agents), simFlags.server)
	simulator.RunFleet(ctx, agents)
	return nil
}
