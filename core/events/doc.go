// Package events defines the notifications emitted on the internal event
// bus.
//
// Available event types:
//   - SnapshotEvent: a fleet aggregation pass completed
//   - AlertEvent: a vehicle's latched drowsiness state flipped
//   - CommandEvent: a control command was accepted and persisted
//   - CommandStatusEvent: an agent reported a delivery outcome
package events
