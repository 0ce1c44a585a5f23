package events

import "github.com/fleetguard/fleetguard/core/model"

// CommandEvent is published when a command passes validation and is
// persisted.
type CommandEvent struct {
	Record model.CommandRecord
}

// CommandStatusEvent is published when a vehicle agent reports the
// delivery outcome of a previously dispatched command.
type CommandStatusEvent struct {
	CommandID string
	VehicleID string
	Status    model.CommandStatus
}
