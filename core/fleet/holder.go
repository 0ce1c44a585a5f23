package fleet

import (
	"sync"
	"time"

	"github.com/fleetguard/fleetguard/core/model"
)

// Holder keeps the newest snapshot for concurrent readers. The refresh loop
// replaces it wholesale; API handlers read it without blocking aggregation.
type Holder struct {
	mu          sync.RWMutex
	snapshot    model.FleetSnapshot
	refreshedAt time.Time
}

// NewHolder returns a holder primed with an empty snapshot so readers before
// the first refresh see zero vehicles, not a nil map.
func NewHolder() *Holder {
	return &Holder{
		snapshot: model.FleetSnapshot{
			Vehicles: map[string]model.VehicleState{},
			History:  []model.HistoryPoint{},
		},
	}
}

// Set stores snap as the current snapshot, stamped at.
func (h *Holder) Set(snap model.FleetSnapshot, at time.Time) {
	h.mu.Lock()
	h.snapshot = snap
	h.refreshedAt = at
	h.mu.Unlock()
}

// Get returns the current snapshot and its refresh time. The vehicle map and
// history slice are copied so the caller may decorate entries without racing
// the refresh loop. Pointer fields inside entries are shared and treated as
// immutable.
func (h *Holder) Get() (model.FleetSnapshot, time.Time) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := h.snapshot
	out.Vehicles = make(map[string]model.VehicleState, len(h.snapshot.Vehicles))
	for id, vs := range h.snapshot.Vehicles {
		out.Vehicles[id] = vs
	}
	out.History = make([]model.HistoryPoint, len(h.snapshot.History))
	copy(out.History, h.snapshot.History)
	return out, h.refreshedAt
}
