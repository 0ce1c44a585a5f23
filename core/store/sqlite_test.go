package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fleetguard/fleetguard/core/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "fleet.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_TelemetryPersistQuery(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, ts := range []float64{1200.5, 1000, 1300} {
		rec := model.TelemetryRecord{
			VehicleID: "BUS12",
			Driver:    &model.Driver{ID: "DRV007", Name: "Karimul Driver"},
			Speed:     42,
			GPS:       model.GPS{Lat: 23.81, Lng: 90.41},
			Alert:     model.NewAlertFlag("Sleeping"),
			Timestamp: ts,
		}
		if _, err := s.InsertTelemetry(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	out, err := s.RecentTelemetry(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].Timestamp != 1300 || out[1].Timestamp != 1200.5 {
		t.Errorf("expected newest-first order, got %v then %v", out[0].Timestamp, out[1].Timestamp)
	}
	if out[0].ID == "" {
		t.Error("expected assigned id to survive the round trip")
	}
	if !out[0].Alert.Raised() {
		t.Error("expected alert flag to survive the round trip")
	}
	if out[0].Driver == nil || out[0].Driver.ID != "DRV007" {
		t.Errorf("driver did not survive the round trip: %+v", out[0].Driver)
	}
}

func TestSQLiteStore_CommandStatusColumnWins(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	id, err := s.InsertCommand(ctx, model.CommandRecord{
		VehicleID: "BUS12",
		Command:   model.CommandKillEngine,
		Timestamp: 2000,
		Status:    model.StatusPending,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpdateCommandStatus(ctx, id, model.StatusFailed); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, err := s.RecentCommands(ctx, 20)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 command, got %d", len(out))
	}
	if out[0].Status != model.StatusFailed {
		t.Errorf("expected status column to override document, got %q", out[0].Status)
	}
	if out[0].Command != model.CommandKillEngine {
		t.Errorf("command did not survive the round trip: %v", out[0].Command)
	}
}

func TestSQLiteStore_UpdateUnknownCommand(t *testing.T) {
	s := newTestSQLite(t)
	err := s.UpdateCommandStatus(context.Background(), "missing", model.StatusAcknowledged)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
