package scenarios

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/fleetguard/fleetguard/core/ack"
	"github.com/fleetguard/fleetguard/core/fleet"
	"github.com/fleetguard/fleetguard/core/latch"
	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/core/store"
	"github.com/fleetguard/fleetguard/infra/logger"
)

// baseTimestamp anchors the relative offsets of every fixture.
const baseTimestamp = 1_700_000_000.0

// speedTolerance absorbs float noise in averaged speeds.
const speedTolerance = 1e-9

// RunScenario replays one fixture through the real pipeline: samples go into
// a memory store, one refresh pass aggregates them, and the published
// snapshot is checked against the expectations. The samples are then
// replayed in reverse insertion order and the snapshot must not change.
func RunScenario(t *testing.T, sc *Scenario) {
	records := make([]model.TelemetryRecord, len(sc.Samples))
	for i, s := range sc.Samples {
		records[i] = s.ToModel(baseTimestamp)
	}

	snap := replay(t, sc, records)
	assertSnapshot(t, sc, snap)

	reversed := make([]model.TelemetryRecord, len(records))
	for i, rec := range records {
		reversed[len(records)-1-i] = rec
	}
	again := replay(t, sc, reversed)
	assertSnapshot(t, sc, again)
	if len(again.Vehicles) != len(snap.Vehicles) || again.Stats != snap.Stats {
		t.Errorf("scenario %s: reversed replay diverged: %+v vs %+v", sc.Name, again.Stats, snap.Stats)
	}
}

func replay(t *testing.T, sc *Scenario, records []model.TelemetryRecord) model.FleetSnapshot {
	st := store.NewMemoryStore()
	ctx := context.Background()
	for _, rec := range records {
		if _, err := st.InsertTelemetry(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	resolver := latch.NewResolver(sc.WindowSeconds)
	agg := fleet.NewAggregator(resolver, 0)
	tracker := ack.NewTracker(time.Minute)
	holder := fleet.NewHolder()
	ref := fleet.NewRefresher(st, agg, tracker, holder, nil, logger.NopLogger{}, 0, len(records)+1)

	ref.RefreshOnce(ctx)
	snap, _ := holder.Get()
	return snap
}

func assertSnapshot(t *testing.T, sc *Scenario, snap model.FleetSnapshot) {
	if snap.Stats.DrowsinessCount != sc.Expected.DrowsinessCount {
		t.Errorf("scenario %s: expected %d drowsy vehicles, got %d",
			sc.Name, sc.Expected.DrowsinessCount, snap.Stats.DrowsinessCount)
	}
	if sc.Expected.AvgSpeed != nil && math.Abs(snap.Stats.AvgSpeed-*sc.Expected.AvgSpeed) > speedTolerance {
		t.Errorf("scenario %s: expected avg speed %v, got %v",
			sc.Name, *sc.Expected.AvgSpeed, snap.Stats.AvgSpeed)
	}
	if sc.Expected.HistoricalAlerts != nil && snap.Stats.TotalHistoricalAlerts != *sc.Expected.HistoricalAlerts {
		t.Errorf("scenario %s: expected %d historical alerts, got %d",
			sc.Name, *sc.Expected.HistoricalAlerts, snap.Stats.TotalHistoricalAlerts)
	}

	for id, exp := range sc.Expected.Vehicles {
		vs, ok := snap.Vehicles[id]
		if !ok {
			t.Errorf("scenario %s: vehicle %s missing from snapshot", sc.Name, id)
			continue
		}
		if vs.IsDrowsy != exp.Drowsy {
			t.Errorf("scenario %s: vehicle %s drowsy=%v, expected %v",
				sc.Name, id, vs.IsDrowsy, exp.Drowsy)
		}
		switch {
		case exp.SecondsSinceAlert == nil:
		case vs.SecondsSinceAlert == nil:
			t.Errorf("scenario %s: vehicle %s has no alert distance, expected %v",
				sc.Name, id, *exp.SecondsSinceAlert)
		case math.Abs(*vs.SecondsSinceAlert-*exp.SecondsSinceAlert) > speedTolerance:
			t.Errorf("scenario %s: vehicle %s alert distance %v, expected %v",
				sc.Name, id, *vs.SecondsSinceAlert, *exp.SecondsSinceAlert)
		}
	}
}
