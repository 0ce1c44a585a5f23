package fleet

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/fleetguard/fleetguard/core/latch"
	"github.com/fleetguard/fleetguard/core/model"
)

// DefaultHistoryPoints is how many trailing samples the snapshot keeps for
// trend display.
const DefaultHistoryPoints = 30

// historyTimeLayout labels history points with UTC wall-clock time. Trends
// span minutes, so the date is dropped.
const historyTimeLayout = "15:04:05"

// Aggregator reduces a window of raw telemetry to a fleet snapshot: one
// derived state per vehicle, fleet-wide statistics, and a short history
// tail. Aggregation is a pure function of the input records, so replaying
// the same window always produces the same snapshot.
type Aggregator struct {
	resolver *latch.Resolver
	history  int
}

// NewAggregator builds an aggregator on top of the given alert resolver.
// historyPoints <= 0 falls back to DefaultHistoryPoints.
func NewAggregator(resolver *latch.Resolver, historyPoints int) *Aggregator {
	if historyPoints <= 0 {
		historyPoints = DefaultHistoryPoints
	}
	return &Aggregator{resolver: resolver, history: historyPoints}
}

// Aggregate builds a snapshot from one window of records. The input slice is
// not mutated and its order does not matter: records are re-sorted on
// (timestamp, id) internally, so a shuffled window yields an identical
// snapshot.
//
// Acknowledged is left false on every vehicle; operator acknowledgments live
// outside the telemetry window and are merged in by the caller.
func (a *Aggregator) Aggregate(records []model.TelemetryRecord) model.FleetSnapshot {
	res := a.resolver.Resolve(records)

	snap := model.FleetSnapshot{
		Vehicles: make(map[string]model.VehicleState, len(res.States)),
		History:  make([]model.HistoryPoint, 0, a.history),
	}

	rawAlerts := 0
	latest := make(map[string]model.TelemetryRecord, len(res.States))
	for _, rec := range res.Sorted {
		if rec.Alert.Raised() {
			rawAlerts++
		}
		latest[rec.VehicleID] = rec
	}
	snap.Stats.TotalHistoricalAlerts = rawAlerts

	// Per-vehicle work runs in sorted-id order so the mean accumulates
	// identically on every pass. Summation order shifts the last bits.
	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	speeds := make([]float64, 0, len(ids))
	for _, id := range ids {
		rec := latest[id]
		st := res.States[id]
		vs := model.VehicleState{
			VehicleID: id,
			Driver:    rec.Driver,
			Speed:     rec.Speed,
			GPS:       rec.GPS,
			Alert:     rec.Alert,
			Time:      rec.Time().Format(historyTimeLayout),
			Timestamp: rec.Timestamp,
			IsDrowsy:  st.IsDrowsy,
		}
		if !math.IsInf(st.SecondsSinceAlert, 1) {
			since := st.SecondsSinceAlert
			vs.SecondsSinceAlert = &since
		}
		snap.Vehicles[id] = vs
		speeds = append(speeds, rec.Speed)
		if st.IsDrowsy {
			snap.Stats.DrowsinessCount++
		}
	}

	snap.Stats.TotalVehicles = len(latest)
	if len(speeds) > 0 {
		snap.Stats.AvgSpeed = math.Round(stat.Mean(speeds, nil))
	}

	start := len(res.Sorted) - a.history
	if start < 0 {
		start = 0
	}
	for i := start; i < len(res.Sorted); i++ {
		rec := res.Sorted[i]
		point := model.HistoryPoint{
			Time:  rec.Time().Format(historyTimeLayout),
			Speed: rec.Speed,
		}
		if res.Flags[i] {
			point.IsAlertSample = 1
		}
		snap.History = append(snap.History, point)
	}

	return snap
}
