package simulator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fleetguard/fleetguard/core/model"
)

func TestAgentPostsHeartbeats(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/telemetry" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			return
		}
		var m map[string]any
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Errorf("decode heartbeat: %v", err)
		}
		mu.Lock()
		bodies = append(bodies, m)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	agent := &Agent{
		VehicleID: "BUS12",
		Driver:    model.Driver{ID: "DRV007", Name: "Karimul Driver"},
		Server:    ts.URL,
		Heartbeat: 20 * time.Millisecond,
		Poll:      time.Hour,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if err := agent.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) < 2 {
		t.Fatalf("expected several heartbeats, got %d", len(bodies))
	}
	hb := bodies[0]
	if hb["vehicleId"] != "BUS12" {
		t.Errorf("vehicleId = %v", hb["vehicleId"])
	}
	if hb["alert"] != false {
		t.Errorf("alert = %v, want false", hb["alert"])
	}
	driver, ok := hb["driver"].(map[string]any)
	if !ok || driver["name"] != "Karimul Driver" {
		t.Errorf("driver block missing or wrong: %v", hb["driver"])
	}
	if _, ok := hb["timestamp"].(float64); !ok {
		t.Errorf("timestamp missing")
	}
}

func TestAgentReportsEpisodeAsSleeping(t *testing.T) {
	var mu sync.Mutex
	var alerts []any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		mu.Lock()
		alerts = append(alerts, m["alert"])
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	agent := &Agent{
		VehicleID: "BUS12",
		Driver:    model.Driver{ID: "DRV007", Name: "Karimul Driver"},
		Server:    ts.URL,
		Heartbeat: 20 * time.Millisecond,
		Poll:      time.Hour,
	}
	agent.BeginEpisode(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	_ = agent.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(alerts) == 0 {
		t.Fatalf("no heartbeats observed")
	}
	for _, a := range alerts {
		if a != "Sleeping" {
			t.Fatalf("alert = %v, want Sleeping", a)
		}
	}
}

func TestAgentCommandFilterChain(t *testing.T) {
	now := float64(time.Now().UnixNano()) / 1e9
	records := []model.CommandRecord{
		{ID: "c1", VehicleID: "BUS12", Command: model.CommandTriggerAlarm, Timestamp: now - 1, Status: model.StatusPending},
		{ID: "c2", VehicleID: "BUS13", Command: model.CommandTriggerAlarm, Timestamp: now - 1, Status: model.StatusPending},
		{ID: "c3", VehicleID: "BUS12", Command: model.CommandKillEngine, Timestamp: now - 30, Status: model.StatusPending},
		{ID: "c4", VehicleID: "BUS12", Command: model.CommandReset, Timestamp: now - 1, Status: model.StatusAcknowledged},
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/commands" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			return
		}
		_ = json.NewEncoder(w).Encode(records)
	}))
	defer ts.Close()

	var mu sync.Mutex
	var executed []string
	agent := &Agent{
		VehicleID: "BUS12",
		Server:    ts.URL,
		OnCommand: func(rec model.CommandRecord) {
			mu.Lock()
			executed = append(executed, rec.ID)
			mu.Unlock()
		},
	}
	agent.init()

	agent.pollCommands(context.Background())
	// Second poll returns the same window; dedup must hold.
	agent.pollCommands(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(executed) != 1 || executed[0] != "c1" {
		t.Fatalf("executed = %v, want [c1]", executed)
	}
	if !agent.Alarming() {
		t.Fatalf("alarm not sounding after TRIGGER_ALARM")
	}
}

func TestAgentResetClearsEpisode(t *testing.T) {
	agent := &Agent{VehicleID: "BUS12"}
	agent.init()
	agent.BeginEpisode(time.Minute)
	if !agent.Drowsy() {
		t.Fatalf("episode did not start")
	}
	agent.execute(model.CommandRecord{ID: "c1", VehicleID: "BUS12", Command: model.CommandReset})
	if agent.Drowsy() {
		t.Fatalf("RESET left the drowsy flag set")
	}
}

func TestAgentEngineCutPinsSpeed(t *testing.T) {
	agent := &Agent{VehicleID: "BUS12"}
	agent.init()
	agent.execute(model.CommandRecord{ID: "c1", VehicleID: "BUS12", Command: model.CommandKillEngine})

	agent.mu.Lock()
	agent.wander(time.Now().Before(agent.engineUntil))
	speed := agent.speed
	agent.mu.Unlock()
	if speed != 0 {
		t.Fatalf("speed = %v with engine cut, want 0", speed)
	}
}

func TestGenerateFleetRoster(t *testing.T) {
	agents := GenerateFleet(FleetConfig{Server: "http://localhost:8080", Size: 3}, nil)
	if len(agents) != 3 {
		t.Fatalf("size = %d", len(agents))
	}
	if agents[0].VehicleID != "BUS12" || agents[0].Driver.Name != "Karimul Driver" {
		t.Fatalf("reference agent wrong: %+v", agents[0])
	}
	if agents[2].VehicleID != "BUS14" {
		t.Fatalf("ids not sequential: %s", agents[2].VehicleID)
	}
}
