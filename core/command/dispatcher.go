package command

import (
	"context"
	"strings"
	"time"

	"github.com/fleetguard/fleetguard/core/events"
	"github.com/fleetguard/fleetguard/core/logger"
	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/core/store"
	"github.com/fleetguard/fleetguard/internal/eventbus"
)

// Request is one command submission as received from an operator. Command
// arrives as the raw wire name so the dispatcher owns the allow-list check.
type Request struct {
	VehicleID string        `json:"vehicleId"`
	Command   string        `json:"command"`
	Driver    *model.Driver `json:"driver,omitempty"`
}

// Dispatcher validates command submissions, persists them as PENDING, and
// announces accepted ones on the bus. Identity and timestamps are assigned
// here: client-supplied values never survive.
type Dispatcher struct {
	store store.CommandStore
	bus   eventbus.EventBus
	log   logger.Logger
	now   func() time.Time
}

// NewDispatcher wires a dispatcher. bus may be nil when nothing consumes
// command events.
func NewDispatcher(st store.CommandStore, bus eventbus.EventBus, log logger.Logger) *Dispatcher {
	return &Dispatcher{store: st, bus: bus, log: log, now: time.Now}
}

// Submit validates req and persists an accepted command. Rejections return a
// *model.ValidationError and leave no trace in the store; storage failures
// wrap store.ErrUnavailable.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (model.CommandRecord, error) {
	if strings.TrimSpace(req.VehicleID) == "" {
		return model.CommandRecord{}, model.NewMissingField("vehicleId")
	}
	if strings.TrimSpace(req.Command) == "" {
		return model.CommandRecord{}, model.NewMissingField("command")
	}
	cmd, ok := model.ParseCommandType(req.Command)
	if !ok {
		return model.CommandRecord{}, model.NewInvalidCommand(req.Command, model.CommandTypeNames())
	}

	rec := model.CommandRecord{
		VehicleID: req.VehicleID,
		Command:   cmd,
		Driver:    req.Driver,
		Timestamp: float64(d.now().UnixNano()) / 1e9,
		Status:    model.StatusPending,
	}
	id, err := d.store.InsertCommand(ctx, rec)
	if err != nil {
		return model.CommandRecord{}, err
	}
	rec.ID = id

	d.log.Infof("command %s dispatched to %s (%s)", rec.Command, rec.VehicleID, rec.ID)
	if d.bus != nil {
		d.bus.Publish(events.CommandEvent{Record: rec})
	}
	return rec, nil
}

// Recent returns the latest commands, newest first.
func (d *Dispatcher) Recent(ctx context.Context, limit int) ([]model.CommandRecord, error) {
	return d.store.RecentCommands(ctx, limit)
}

// UpdateStatus records a delivery outcome reported by a vehicle agent and
// announces the change.
func (d *Dispatcher) UpdateStatus(ctx context.Context, id, vehicleID string, status model.CommandStatus) error {
	if err := d.store.UpdateCommandStatus(ctx, id, status); err != nil {
		return err
	}
	d.log.Debugf("command %s on %s moved to %s", id, vehicleID, status)
	if d.bus != nil {
		d.bus.Publish(events.CommandStatusEvent{CommandID: id, VehicleID: vehicleID, Status: status})
	}
	return nil
}
