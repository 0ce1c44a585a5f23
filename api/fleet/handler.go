package fleet

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/fleetguard/fleetguard/api/respond"
	"github.com/fleetguard/fleetguard/core/ack"
	"github.com/fleetguard/fleetguard/core/events"
	corefleet "github.com/fleetguard/fleetguard/core/fleet"
	"github.com/fleetguard/fleetguard/core/logger"
	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/internal/eventbus"
)

// Handler serves the aggregated fleet view, operator acknowledgments, and
// the live snapshot stream.
type Handler struct {
	holder  *corefleet.Holder
	tracker *ack.Tracker
	bus     eventbus.EventBus
	log     logger.Logger
}

// NewHandler wires the fleet endpoints. bus may be nil, which disables the
// live stream.
func NewHandler(holder *corefleet.Holder, tracker *ack.Tracker, bus eventbus.EventBus, log logger.Logger) *Handler {
	return &Handler{holder: holder, tracker: tracker, bus: bus, log: log}
}

// snapshotResponse decorates the aggregation output with its freshness.
type snapshotResponse struct {
	model.FleetSnapshot
	RefreshedAt time.Time `json:"refreshedAt"`
}

// Snapshot handles GET /api/fleet. Acknowledged flags are recomputed from
// the tracker at read time, so an operator action shows up on the very next
// request instead of after the refresh tick.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, refreshedAt := h.holder.Get()
	now := time.Now()
	for id, vs := range snap.Vehicles {
		vs.Acknowledged = h.tracker.IsAcknowledged(id, now)
		snap.Vehicles[id] = vs
	}
	respond.JSON(w, http.StatusOK, snapshotResponse{FleetSnapshot: snap, RefreshedAt: refreshedAt})
}

// ackResponse is the body returned by a successful acknowledgment.
type ackResponse struct {
	VehicleID string    `json:"vehicleId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Acknowledge handles POST /api/fleet/{id}/acknowledge. Repeats extend the
// suppression window; acknowledging a vehicle with no active alert is
// accepted and simply expires unused.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		respond.Validation(w, model.NewMissingField("vehicleId"))
		return
	}

	expiry := h.tracker.Acknowledge(id)
	h.log.Infof("vehicle %s acknowledged until %s", id, expiry.UTC().Format(time.RFC3339))
	if h.bus != nil {
		h.bus.Publish(events.AckEvent{VehicleID: id, Expiry: expiry})
	}
	respond.JSON(w, http.StatusOK, ackResponse{VehicleID: id, ExpiresAt: expiry.UTC()})
}
