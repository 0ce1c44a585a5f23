package events

import (
	"time"

	"github.com/fleetguard/fleetguard/core/model"
)

// SnapshotEvent is published after every aggregation pass.
type SnapshotEvent struct {
	Snapshot   model.FleetSnapshot
	ActiveAcks int
	Duration   time.Duration
}

// AlertEvent is published when a vehicle's latched drowsiness state
// changes between consecutive passes.
type AlertEvent struct {
	VehicleID string
	Raised    bool
	State     model.VehicleState
}

// AckEvent is published when an operator acknowledges a vehicle's alert.
type AckEvent struct {
	VehicleID string
	Expiry    time.Time
}
