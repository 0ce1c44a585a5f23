package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/fleetguard/fleetguard/core/metrics"
	"github.com/fleetguard/fleetguard/core/model"
)

func TestInfluxSink_RecordFleetSnapshot(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.FleetSnapshotEvent{
		Vehicles:   3,
		Drowsy:     1,
		AvgSpeed:   42,
		ActiveAcks: 2,
		Duration:   1500 * time.Microsecond,
		Time:       now,
	}
	if err := sink.RecordFleetSnapshot(ev); err != nil {
		t.Fatalf("record: %v", err)
	}

	p := write.NewPointWithMeasurement("fleet_snapshot").
		AddTag("component", "fleet_refresher").
		AddField("vehicles", 3).
		AddField("drowsy", 1).
		AddField("avg_speed", 42.0).
		AddField("active_acks", 2).
		AddField("refresh_ms", 1.5).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_RecordVehicleState(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	since := 12.345678
	ev := coremetrics.VehicleStateEvent{
		State: model.VehicleState{
			VehicleID:         "BUS12",
			Speed:             47.5,
			GPS:               model.GPS{Lat: 24.879915, Lng: 88.2713},
			IsDrowsy:          true,
			SecondsSinceAlert: &since,
		},
		Time: now,
	}
	if err := sink.RecordVehicleState(ev); err != nil {
		t.Fatalf("record: %v", err)
	}

	p := write.NewPointWithMeasurement("vehicle_state").
		AddTag("vehicle_id", "BUS12").
		AddTag("drowsy", "true").
		AddTag("acknowledged", "false").
		AddField("speed", 47.5).
		AddField("lat", 24.879915).
		AddField("lng", 88.2713).
		AddField("seconds_since_alert", 12.346).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_RecordCommand(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.CommandEvent{
		Record: model.CommandRecord{
			ID:        "c1",
			VehicleID: "BUS12",
			Command:   model.CommandKillEngine,
			Status:    model.StatusPending,
		},
		Time: now,
	}
	if err := sink.RecordCommand(ev); err != nil {
		t.Fatalf("record: %v", err)
	}

	p := write.NewPointWithMeasurement("command_event").
		AddTag("vehicle_id", "BUS12").
		AddTag("command", "KILL_ENGINE").
		AddTag("status", "PENDING").
		AddTag("command_id", "c1").
		AddField("count", 1).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
