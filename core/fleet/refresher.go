package fleet

import (
	"context"
	"time"

	"github.com/fleetguard/fleetguard/core/ack"
	"github.com/fleetguard/fleetguard/core/events"
	"github.com/fleetguard/fleetguard/core/logger"
	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/core/monitoring"
	"github.com/fleetguard/fleetguard/core/store"
	"github.com/fleetguard/fleetguard/internal/eventbus"
)

const (
	// DefaultRefreshInterval is the snapshot recomputation cadence.
	DefaultRefreshInterval = time.Second
	// DefaultFetchLimit bounds how many recent records one pass reads.
	DefaultFetchLimit = 150
	// fetchTimeout caps one store read. A slow store makes the snapshot
	// stale, never blocks the loop past the next tick boundary.
	fetchTimeout = 5 * time.Second
)

// Refresher recomputes the fleet snapshot on a fixed cadence, merges in the
// operator acknowledgments, and publishes the result. When a pass fails the
// previous snapshot stays visible, so a flapping store degrades freshness
// rather than blanking the fleet view.
type Refresher struct {
	store    store.TelemetryStore
	agg      *Aggregator
	acks     *ack.Tracker
	holder   *Holder
	bus      eventbus.EventBus
	log      logger.Logger
	interval time.Duration
	limit    int
	now      func() time.Time

	prevDrowsy map[string]bool
}

// NewRefresher wires a refresh loop. interval <= 0 falls back to
// DefaultRefreshInterval, limit <= 0 to DefaultFetchLimit. bus may be nil
// when no consumer is interested in snapshot events.
func NewRefresher(st store.TelemetryStore, agg *Aggregator, acks *ack.Tracker, holder *Holder, bus eventbus.EventBus, log logger.Logger, interval time.Duration, limit int) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	return &Refresher{
		store:      st,
		agg:        agg,
		acks:       acks,
		holder:     holder,
		bus:        bus,
		log:        log,
		interval:   interval,
		limit:      limit,
		now:        time.Now,
		prevDrowsy: map[string]bool{},
	}
}

// Run refreshes until ctx is cancelled. One pass runs up front so readers
// see data before the first tick.
func (r *Refresher) Run(ctx context.Context) {
	r.RefreshOnce(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce runs a single pass: fetch the recent window, aggregate, merge
// acknowledgments, store and publish.
func (r *Refresher) RefreshOnce(ctx context.Context) {
	started := r.now()

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	records, err := r.store.RecentTelemetry(fetchCtx, r.limit)
	cancel()
	if err != nil {
		r.log.Errorf("fleet refresh: reading recent telemetry: %v", err)
		monitoring.CaptureException(err, map[string]string{"module": "fleet_refresher"})
		return
	}

	snap := r.agg.Aggregate(records)

	now := r.now()
	for id, vs := range snap.Vehicles {
		if r.acks.IsAcknowledged(id, now) {
			vs.Acknowledged = true
			snap.Vehicles[id] = vs
		}
	}

	r.holder.Set(snap, now)
	r.publishTransitions(snap)
	if r.bus != nil {
		r.bus.Publish(events.SnapshotEvent{
			Snapshot:   snap,
			ActiveAcks: r.acks.Active(now),
			Duration:   r.now().Sub(started),
		})
	}
}

// publishTransitions emits an AlertEvent for every vehicle whose latched
// state flipped since the previous pass. Vehicles that left the window are
// forgotten without an event; absence is not a falling edge.
func (r *Refresher) publishTransitions(snap model.FleetSnapshot) {
	current := make(map[string]bool, len(snap.Vehicles))
	for id, vs := range snap.Vehicles {
		current[id] = vs.IsDrowsy
		if vs.IsDrowsy == r.prevDrowsy[id] {
			continue
		}
		if r.bus != nil {
			r.bus.Publish(events.AlertEvent{VehicleID: id, Raised: vs.IsDrowsy, State: vs})
		}
		if vs.IsDrowsy {
			r.log.Warnf("vehicle %s latched drowsy", id)
		} else {
			r.log.Infof("vehicle %s cleared drowsy", id)
		}
	}
	r.prevDrowsy = current
}
