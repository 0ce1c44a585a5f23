package model

import (
	"encoding/json"
	"math"
	"time"
)

// Driver identifies who was behind the wheel when a sample was captured.
type Driver struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GPS is a WGS84 position reported by the onboard unit.
type GPS struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AlertFlag is the raw drowsiness flag of one sample. Onboard agents send
// either a boolean or a label such as "Sleeping" depending on firmware
// generation, so the value is kept as received and truthiness is derived
// on demand.
type AlertFlag struct {
	value any
}

// NewAlertFlag builds a flag from a raw boolean or label value. Values of
// any other type are treated as an unset flag.
func NewAlertFlag(v any) AlertFlag {
	switch v.(type) {
	case bool, string:
		return AlertFlag{value: v}
	}
	return AlertFlag{}
}

// Raised reports whether the flag signals a drowsiness event: boolean true
// or one of the labels emitted by the camera agent.
func (f AlertFlag) Raised() bool {
	switch v := f.value.(type) {
	case bool:
		return v
	case string:
		return v == "Sleeping" || v == "true"
	}
	return false
}

func (f *AlertFlag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v.(type) {
	case bool, string:
		f.value = v
	default:
		f.value = nil
	}
	return nil
}

func (f AlertFlag) MarshalJSON() ([]byte, error) {
	if f.value == nil {
		return []byte("false"), nil
	}
	return json.Marshal(f.value)
}

// TelemetryRecord is one validated heartbeat sample as persisted by the
// ingest pipeline. Timestamp is seconds since the Unix epoch; agents send
// fractional seconds and those survive the round trip.
type TelemetryRecord struct {
	ID        string    `json:"id,omitempty"`
	VehicleID string    `json:"vehicleId"`
	Driver    *Driver   `json:"driver,omitempty"`
	Speed     float64   `json:"speed"`
	GPS       GPS       `json:"gps"`
	Alert     AlertFlag `json:"alert"`
	Timestamp float64   `json:"timestamp"`
	Degraded  bool      `json:"-"`
}

// Time converts the epoch-second timestamp to UTC wall time.
func (r TelemetryRecord) Time() time.Time {
	sec, frac := math.Modf(r.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
