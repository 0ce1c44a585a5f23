package fleet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/fleetguard/fleetguard/core/ack"
	"github.com/fleetguard/fleetguard/core/events"
	corefleet "github.com/fleetguard/fleetguard/core/fleet"
	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/infra/logger"
	"github.com/fleetguard/fleetguard/internal/eventbus"
)

func seededHolder() *corefleet.Holder {
	h := corefleet.NewHolder()
	h.Set(model.FleetSnapshot{
		Vehicles: map[string]model.VehicleState{
			"BUS12": {VehicleID: "BUS12", Speed: 45, IsDrowsy: true},
			"BUS13": {VehicleID: "BUS13", Speed: 0},
		},
		Stats:   model.FleetStats{TotalVehicles: 2, DrowsinessCount: 1, AvgSpeed: 23},
		History: []model.HistoryPoint{{Time: "22:13:20", Speed: 45, IsAlertSample: 1}},
	}, time.Now())
	return h
}

func TestSnapshotMergesAcknowledgmentsAtReadTime(t *testing.T) {
	holder := seededHolder()
	tracker := ack.NewTracker(time.Minute)
	tracker.Acknowledge("BUS12")
	h := NewHandler(holder, tracker, nil, logger.NopLogger{})

	rr := httptest.NewRecorder()
	h.Snapshot(rr, httptest.NewRequest(http.MethodGet, "/api/fleet", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out struct {
		model.FleetSnapshot
		RefreshedAt time.Time `json:"refreshedAt"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Vehicles["BUS12"].Acknowledged {
		t.Errorf("expected BUS12 acknowledged")
	}
	if out.Vehicles["BUS13"].Acknowledged {
		t.Errorf("expected BUS13 not acknowledged")
	}
	if out.Stats.TotalVehicles != 2 || len(out.History) != 1 {
		t.Errorf("snapshot body incomplete: %+v", out)
	}
	if out.RefreshedAt.IsZero() {
		t.Errorf("expected refreshedAt to be set")
	}
}

func TestAcknowledge(t *testing.T) {
	tracker := ack.NewTracker(0)
	bus := eventbus.New()
	sub := bus.SubscribeBuffered(4)
	h := NewHandler(corefleet.NewHolder(), tracker, bus, logger.NopLogger{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/fleet/BUS12/acknowledge", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "BUS12"})
	h.Acknowledge(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	var out struct {
		VehicleID string    `json:"vehicleId"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.VehicleID != "BUS12" {
		t.Errorf("vehicleId %q", out.VehicleID)
	}
	remaining := time.Until(out.ExpiresAt)
	if remaining < 4*time.Minute || remaining > 6*time.Minute {
		t.Errorf("expected expiry about 5 minutes out, got %s", remaining)
	}
	if !tracker.IsAcknowledged("BUS12", time.Now()) {
		t.Errorf("tracker must hold the acknowledgment")
	}

	select {
	case ev := <-sub:
		ae, ok := ev.(events.AckEvent)
		if !ok {
			t.Fatalf("expected AckEvent, got %T", ev)
		}
		if ae.VehicleID != "BUS12" {
			t.Errorf("event vehicle %q", ae.VehicleID)
		}
	default:
		t.Fatalf("expected an ack event on the bus")
	}
}

func TestAcknowledgeMissingID(t *testing.T) {
	h := NewHandler(corefleet.NewHolder(), ack.NewTracker(0), nil, logger.NopLogger{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/fleet//acknowledge", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "  "})
	h.Acknowledge(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
}
