package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fleetguard/fleetguard/core/model"
)

func TestArchive_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	a, err := NewArchive(dir, 1, 2, 1)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	defer func() { _ = a.Close() }()

	for _, ts := range []float64{1300, 1000, 1100} {
		if err := a.AppendTelemetry(model.TelemetryRecord{VehicleID: "BUS12", Timestamp: ts}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	out, err := ReadTelemetryArchive(filepath.Join(dir, "telemetry.jsonl"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 records, got %d", len(out))
	}
	if out[0].Timestamp != 1000 || out[2].Timestamp != 1300 {
		t.Errorf("expected ascending order, got %v", out)
	}
}

func TestArchive_SkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	a, err := NewArchive(dir, 1, 2, 1)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	if err := a.AppendCommand(model.CommandRecord{ID: "c1", VehicleID: "BUS12", Timestamp: 500, Status: model.StatusPending}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(dir, "commands.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{truncated\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	out, err := ReadCommandArchive(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 1 || out[0].ID != "c1" {
		t.Errorf("expected the one intact record, got %+v", out)
	}
}
