package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/infra/logger"
)

// FleetConfig shapes a generated fleet of agents.
type FleetConfig struct {
	// Server is the engine base URL shared by every agent.
	Server string
	// Size is the number of agents.
	Size int
	// DrowsyChance is the per-heartbeat episode probability for each agent.
	DrowsyChance float64
	// DegradedPct is the share of agents posting without driver identity.
	DegradedPct float64
	// Heartbeat and Poll override the firmware cadences when positive.
	Heartbeat time.Duration
	Poll      time.Duration
}

// GenerateFleet builds the agents. The first one is always BUS12 with the
// reference driver so a generated fleet matches the field pilot's roster.
func GenerateFleet(cfg FleetConfig, log logger.Logger) []*Agent {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	agents := make([]*Agent, 0, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		vehicleID := fmt.Sprintf("BUS%d", 12+i)
		driver := model.Driver{
			ID:   fmt.Sprintf("DRV%03d", 7+i),
			Name: fmt.Sprintf("Driver %03d", 7+i),
		}
		if i == 0 {
			driver.Name = "Karimul Driver"
		}
		agents = append(agents, &Agent{
			VehicleID:    vehicleID,
			Driver:       driver,
			Server:       cfg.Server,
			Heartbeat:    cfg.Heartbeat,
			Poll:         cfg.Poll,
			DrowsyChance: cfg.DrowsyChance,
			OmitDriver:   cfg.DegradedPct > 0 && float64(i) < cfg.DegradedPct*float64(cfg.Size),
			Log:          log,
		})
	}
	return agents
}

// RunFleet runs every agent until ctx is done.
func RunFleet(ctx context.Context, agents []*Agent) {
	var wg sync.WaitGroup
	for _, a := range agents {
		wg.Add(1)
		go func(a *Agent) {
			defer wg.Done()
			if err := a.Run(ctx); err != nil {
				a.Log.Errorf("%s stopped: %v", a.VehicleID, err)
			}
		}(a)
	}
	wg.Wait()
}
