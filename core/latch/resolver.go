package latch

import (
	"math"
	"sort"

	"github.com/fleetguard/fleetguard/core/model"
)

// DefaultWindowSeconds is how long a raw drowsiness detection keeps a
// vehicle flagged after alerts stop.
const DefaultWindowSeconds = 300.0

// State is one vehicle's latched alert state at the batch reference instant.
type State struct {
	IsDrowsy bool
	// SecondsSinceAlert is measured from the reference instant back to the
	// vehicle's newest raw alert. +Inf when it never alerted in the window.
	SecondsSinceAlert float64
	// LastAlertAt is the timestamp of that alert, 0 when none.
	LastAlertAt float64
}

// Result is the resolver output for one batch.
type Result struct {
	// Sorted holds the input ascending by timestamp. Ties fall back to the
	// storage identifier so a shuffled batch still yields the same sequence.
	Sorted []model.TelemetryRecord
	// Flags align with Sorted: whether each sample sat inside an alert
	// episode at its own instant, for trend annotation.
	Flags []bool
	// States maps vehicle id to its latched state at TMax. Vehicles with
	// no records in the batch are absent, never "unknown but drowsy".
	States map[string]State
	// TMax is the newest timestamp in the batch, the "now" every distance
	// is measured against. Zero when the batch is empty.
	TMax float64
}

// Resolver turns a window of raw samples into debounced per-vehicle alert
// state. A single drowsy sample is noisy; the resolver keeps the flag
// asserted for a trailing window after the last detection instead of
// flapping off on the next clean sample.
type Resolver struct {
	window float64
}

// NewResolver builds a resolver with the given trailing window in seconds.
// Values <= 0 fall back to DefaultWindowSeconds.
func NewResolver(windowSeconds float64) *Resolver {
	if windowSeconds <= 0 {
		windowSeconds = DefaultWindowSeconds
	}
	return &Resolver{window: windowSeconds}
}

// Window returns the trailing window in seconds.
func (r *Resolver) Window() float64 { return r.window }

// Resolve computes latched state for every vehicle present in records. The
// batch's own newest timestamp serves as "now", so a historical window
// resolves the same way no matter when it is replayed.
//
// A vehicle is drowsy iff its newest sample's raw alert is truthy, or its
// newest alert lies strictly less than the window before TMax. The raw
// check comes first: latching may extend an alert, never suppress one.
func (r *Resolver) Resolve(records []model.TelemetryRecord) Result {
	res := Result{States: make(map[string]State)}
	if len(records) == 0 {
		return res
	}

	sorted := make([]model.TelemetryRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].ID < sorted[j].ID
	})
	res.Sorted = sorted
	res.TMax = sorted[len(sorted)-1].Timestamp

	lastAlert := make(map[string]float64)
	latest := make(map[string]model.TelemetryRecord)
	res.Flags = make([]bool, len(sorted))
	for i, rec := range sorted {
		if rec.Alert.Raised() {
			lastAlert[rec.VehicleID] = rec.Timestamp
		}
		if at, ok := lastAlert[rec.VehicleID]; ok && rec.Timestamp-at < r.window {
			res.Flags[i] = true
		}
		latest[rec.VehicleID] = rec
	}

	for id, rec := range latest {
		st := State{SecondsSinceAlert: math.Inf(1)}
		if at, ok := lastAlert[id]; ok {
			st.LastAlertAt = at
			st.SecondsSinceAlert = res.TMax - at
		}
		st.IsDrowsy = rec.Alert.Raised() || st.SecondsSinceAlert < r.window
		res.States[id] = st
	}
	return res
}
