package metrics

import (
	"time"

	"github.com/fleetguard/fleetguard/core/model"
)

// IngestEvent describes one accepted telemetry record.
type IngestEvent struct {
	VehicleID string
	Degraded  bool
	Time      time.Time
}

// ValidationFailureEvent describes one rejected telemetry payload.
type ValidationFailureEvent struct {
	Kind  string
	Field string
	Time  time.Time
}

// FleetSnapshotEvent summarizes one aggregation pass.
type FleetSnapshotEvent struct {
	Vehicles   int
	Drowsy     int
	AvgSpeed   float64
	ActiveAcks int
	Duration   time.Duration
	Time       time.Time
}

// VehicleStateEvent is a per-vehicle observation taken from a snapshot.
type VehicleStateEvent struct {
	State model.VehicleState
	Time  time.Time
}

// CommandEvent records an accepted control command.
type CommandEvent struct {
	Record model.CommandRecord
	Time   time.Time
}

// CommandRejectionEvent records a refused submission.
type CommandRejectionEvent struct {
	Kind string
	Time time.Time
}

// AlertTransitionEvent records a latched state flip.
type AlertTransitionEvent struct {
	VehicleID string
	Raised    bool
	Time      time.Time
}

// AcknowledgeEvent records one operator acknowledgment.
type AcknowledgeEvent struct {
	VehicleID string
	Time      time.Time
}

// MetricsSink records fleet snapshots for observability purposes. Sinks
// that support more detail implement the optional recorder interfaces.
type MetricsSink interface {
	RecordFleetSnapshot(ev FleetSnapshotEvent) error
}

// IngestRecorder counts boundary outcomes of the telemetry ingest path.
type IngestRecorder interface {
	RecordIngest(ev IngestEvent) error
	RecordValidationFailure(ev ValidationFailureEvent) error
}

// VehicleStateRecorder records per-vehicle snapshots.
type VehicleStateRecorder interface {
	RecordVehicleState(ev VehicleStateEvent) error
}

// CommandRecorder records command submissions and rejections.
type CommandRecorder interface {
	RecordCommand(ev CommandEvent) error
	RecordCommandRejection(ev CommandRejectionEvent) error
}

// AlertRecorder records latched alert transitions.
type AlertRecorder interface {
	RecordAlertTransition(ev AlertTransitionEvent) error
}

// AckRecorder records operator acknowledgments.
type AckRecorder interface {
	RecordAcknowledge(ev AcknowledgeEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordFleetSnapshot(FleetSnapshotEvent) error { return nil }

func (NopSink) RecordIngest(IngestEvent) error { return nil }

func (NopSink) RecordValidationFailure(ValidationFailureEvent) error { return nil }

func (NopSink) RecordVehicleState(VehicleStateEvent) error { return nil }

func (NopSink) RecordCommand(CommandEvent) error { return nil }

func (NopSink) RecordCommandRejection(CommandRejectionEvent) error { return nil }

func (NopSink) RecordAlertTransition(AlertTransitionEvent) error { return nil }

func (NopSink) RecordAcknowledge(AcknowledgeEvent) error { return nil }
