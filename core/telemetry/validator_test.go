package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fleetguard/fleetguard/core/model"
)

func decodeRaw(t *testing.T, payload string) RawRecord {
	t.Helper()
	var raw RawRecord
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("decode %s: %v", payload, err)
	}
	return raw
}

func TestValidate_AcceptsCompleteRecord(t *testing.T) {
	raw := decodeRaw(t, `{
		"vehicleId": "BUS12",
		"driver": {"id": "DRV007", "name": "Karimul Driver"},
		"speed": 42.5,
		"gps": {"lat": 23.8103, "lng": 90.4125},
		"alert": "Sleeping",
		"timestamp": 1700000000.25
	}`)

	rec, err := NewValidator().Validate(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rec.VehicleID != "BUS12" || rec.Speed != 42.5 {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.GPS.Lat != 23.8103 || rec.GPS.Lng != 90.4125 {
		t.Errorf("gps = %+v", rec.GPS)
	}
	if !rec.Alert.Raised() {
		t.Error("alert flag lost")
	}
	if rec.Timestamp != 1700000000.25 {
		t.Errorf("timestamp = %v, producer value must win", rec.Timestamp)
	}
	if rec.Degraded {
		t.Error("complete record marked degraded")
	}
}

func TestValidate_MissingFields(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		field   string
	}{
		{"no vehicle id", `{"gps": {"lat": 1, "lng": 2}}`, "vehicleId"},
		{"blank vehicle id", `{"vehicleId": "  ", "gps": {"lat": 1, "lng": 2}}`, "vehicleId"},
		{"no gps", `{"vehicleId": "BUS12"}`, "gps"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewValidator().Validate(decodeRaw(t, c.payload))
			verr, ok := model.AsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Kind != model.KindMissingField || verr.Field != c.field {
				t.Errorf("got %+v, want MissingField on %s", verr, c.field)
			}
		})
	}
}

func TestValidate_InvalidCoordinates(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		field   string
	}{
		{"null lat", `{"vehicleId": "v", "gps": {"lat": null, "lng": 2}}`, "gps.lat"},
		{"missing lng", `{"vehicleId": "v", "gps": {"lat": 1}}`, "gps.lng"},
		{"nan string", `{"vehicleId": "v", "gps": {"lat": "NaN", "lng": 2}}`, "gps.lat"},
		{"inf string", `{"vehicleId": "v", "gps": {"lat": 1, "lng": "+Inf"}}`, "gps.lng"},
		{"garbage", `{"vehicleId": "v", "gps": {"lat": "here", "lng": 2}}`, "gps.lat"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewValidator().Validate(decodeRaw(t, c.payload))
			verr, ok := model.AsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Kind != model.KindInvalidCoordinate || verr.Field != c.field {
				t.Errorf("got %+v, want InvalidCoordinate on %s", verr, c.field)
			}
		})
	}
}

func TestValidate_QuotedCoordinatesAccepted(t *testing.T) {
	raw := decodeRaw(t, `{"vehicleId": "v", "gps": {"lat": "23.81", "lng": "90.41"}}`)
	rec, err := NewValidator().Validate(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rec.GPS.Lat != 23.81 || rec.GPS.Lng != 90.41 {
		t.Errorf("gps = %+v", rec.GPS)
	}
}

func TestValidate_InvalidSpeed(t *testing.T) {
	raw := decodeRaw(t, `{"vehicleId": "v", "speed": -3, "gps": {"lat": 1, "lng": 2}}`)
	_, err := NewValidator().Validate(raw)
	verr, ok := model.AsValidation(err)
	if !ok || verr.Kind != model.KindInvalidSpeed {
		t.Errorf("got %v, want InvalidSpeed", err)
	}
}

func TestValidate_FillsTimestampOnce(t *testing.T) {
	v := NewValidator()
	at := time.Unix(1_700_000_123, 500_000_000)
	v.now = func() time.Time { return at }

	raw := decodeRaw(t, `{"vehicleId": "v", "gps": {"lat": 1, "lng": 2}}`)
	rec, err := v.Validate(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rec.Timestamp != 1_700_000_123.5 {
		t.Errorf("timestamp = %v, want ingestion clock value", rec.Timestamp)
	}
}

func TestValidate_DegradedDriver(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		degraded bool
	}{
		{"absent", `{"vehicleId": "v", "gps": {"lat": 1, "lng": 2}}`, true},
		{"id only", `{"vehicleId": "v", "driver": {"id": "DRV007"}, "gps": {"lat": 1, "lng": 2}}`, true},
		{"complete", `{"vehicleId": "v", "driver": {"id": "DRV007", "name": "Karimul Driver"}, "gps": {"lat": 1, "lng": 2}}`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec, err := NewValidator().Validate(decodeRaw(t, c.payload))
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if rec.Degraded != c.degraded {
				t.Errorf("Degraded = %v, want %v", rec.Degraded, c.degraded)
			}
		})
	}
}
