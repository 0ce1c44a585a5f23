package metrics

import (
	"context"
	"time"

	"github.com/fleetguard/fleetguard/core/events"
	coremetrics "github.com/fleetguard/fleetguard/core/metrics"
	"github.com/fleetguard/fleetguard/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// events. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) {
	now := time.Now()
	switch e := ev.(type) {
	case events.SnapshotEvent:
		_ = sink.RecordFleetSnapshot(coremetrics.FleetSnapshotEvent{
			Vehicles:   e.Snapshot.Stats.TotalVehicles,
			Drowsy:     e.Snapshot.Stats.DrowsinessCount,
			AvgSpeed:   e.Snapshot.Stats.AvgSpeed,
			ActiveAcks: e.ActiveAcks,
			Duration:   e.Duration,
			Time:       now,
		})
		if r, ok := sink.(coremetrics.VehicleStateRecorder); ok {
			for _, st := range e.Snapshot.Vehicles {
				_ = r.RecordVehicleState(coremetrics.VehicleStateEvent{State: st, Time: now})
			}
		}
	case events.AlertEvent:
		if r, ok := sink.(coremetrics.AlertRecorder); ok {
			_ = r.RecordAlertTransition(coremetrics.AlertTransitionEvent{
				VehicleID: e.VehicleID,
				Raised:    e.Raised,
				Time:      now,
			})
		}
	case events.CommandEvent:
		if r, ok := sink.(coremetrics.CommandRecorder); ok {
			_ = r.RecordCommand(coremetrics.CommandEvent{Record: e.Record, Time: now})
		}
	case events.AckEvent:
		if r, ok := sink.(coremetrics.AckRecorder); ok {
			_ = r.RecordAcknowledge(coremetrics.AcknowledgeEvent{VehicleID: e.VehicleID, Time: now})
		}
	}
}
