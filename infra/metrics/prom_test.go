package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/fleetguard/fleetguard/core/metrics"
	"github.com/fleetguard/fleetguard/core/model"
)

func TestPromSink_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	if err := sink.RecordIngest(coremetrics.IngestEvent{VehicleID: "BUS12"}); err != nil {
		t.Fatalf("record ingest: %v", err)
	}
	if err := sink.RecordIngest(coremetrics.IngestEvent{VehicleID: "BUS13", Degraded: true}); err != nil {
		t.Fatalf("record ingest: %v", err)
	}
	if err := sink.RecordValidationFailure(coremetrics.ValidationFailureEvent{Kind: "MissingField"}); err != nil {
		t.Fatalf("record validation failure: %v", err)
	}

	expected := `
# HELP telemetry_records_ingested_total Accepted telemetry records, split by degraded driver data
# TYPE telemetry_records_ingested_total counter
telemetry_records_ingested_total{degraded="false"} 1
telemetry_records_ingested_total{degraded="true"} 1
`
	if err := testutil.CollectAndCompare(sink.ingested, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected ingest metrics: %v", err)
	}

	expected = `
# HELP telemetry_validation_failures_total Rejected telemetry payloads by failure kind
# TYPE telemetry_validation_failures_total counter
telemetry_validation_failures_total{kind="MissingField"} 1
`
	if err := testutil.CollectAndCompare(sink.validation, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected validation metrics: %v", err)
	}
}

func TestPromSink_CommandMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	rec := model.CommandRecord{
		ID:        "c1",
		VehicleID: "BUS12",
		Command:   model.CommandTriggerAlarm,
		Status:    model.StatusPending,
	}
	if err := sink.RecordCommand(coremetrics.CommandEvent{Record: rec, Time: time.Now()}); err != nil {
		t.Fatalf("record command: %v", err)
	}
	if err := sink.RecordCommandRejection(coremetrics.CommandRejectionEvent{Kind: "InvalidCommand"}); err != nil {
		t.Fatalf("record rejection: %v", err)
	}

	expected := `
# HELP commands_submitted_total Accepted control commands by type
# TYPE commands_submitted_total counter
commands_submitted_total{command="TRIGGER_ALARM"} 1
`
	if err := testutil.CollectAndCompare(sink.commands, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected command metrics: %v", err)
	}
	if got := testutil.ToFloat64(sink.rejections.WithLabelValues("InvalidCommand")); got != 1 {
		t.Errorf("rejections = %v, want 1", got)
	}
}

func TestPromSink_AckCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := sink.RecordAcknowledge(coremetrics.AcknowledgeEvent{VehicleID: "BUS12"}); err != nil {
			t.Fatalf("record acknowledge: %v", err)
		}
	}
	if got := testutil.ToFloat64(sink.acknowledged); got != 3 {
		t.Errorf("acknowledgments_total = %v, want 3", got)
	}
}

func TestPromSink_SnapshotGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	ev := coremetrics.FleetSnapshotEvent{
		Vehicles:   3,
		Drowsy:     1,
		AvgSpeed:   42,
		ActiveAcks: 2,
		Duration:   5 * time.Millisecond,
		Time:       time.Now(),
	}
	if err := sink.RecordFleetSnapshot(ev); err != nil {
		t.Fatalf("record snapshot: %v", err)
	}

	if got := testutil.ToFloat64(sink.vehicles); got != 3 {
		t.Errorf("fleet_vehicles = %v, want 3", got)
	}
	if got := testutil.ToFloat64(sink.drowsy); got != 1 {
		t.Errorf("fleet_drowsy_vehicles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.avgSpeed); got != 42 {
		t.Errorf("fleet_avg_speed_kmh = %v, want 42", got)
	}
	if got := testutil.ToFloat64(sink.acks); got != 2 {
		t.Errorf("acknowledgments_active = %v, want 2", got)
	}
}

func TestPromSink_RepeatedConstructionReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}

	if err := first.RecordIngest(coremetrics.IngestEvent{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(second.ingested.WithLabelValues("false")); got != 1 {
		t.Errorf("second sink sees %v, want the shared counter at 1", got)
	}
}
