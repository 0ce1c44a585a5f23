package telemetry

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fleetguard/fleetguard/core/model"
)

// RawRecord is the wire shape of one inbound heartbeat before validation.
// Pointer fields distinguish absent from zero.
type RawRecord struct {
	VehicleID *string         `json:"vehicleId"`
	Driver    *model.Driver   `json:"driver"`
	Speed     *float64        `json:"speed"`
	GPS       *RawGPS         `json:"gps"`
	Alert     model.AlertFlag `json:"alert"`
	Timestamp *float64        `json:"timestamp"`
}

// RawGPS carries coordinates exactly as sent. Older firmware quotes the
// numbers, so decoding must not fail before validation gets a look.
type RawGPS struct {
	Lat Coordinate `json:"lat"`
	Lng Coordinate `json:"lng"`
}

// Coordinate accepts a JSON number or a numeric string and remembers
// whether it resolved to a finite value. Bad input is deferred to the
// validator so the caller sees InvalidCoordinate, not a decode error.
type Coordinate struct {
	value float64
	ok    bool
}

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		c.ok = false
		return nil
	}
	c.value, c.ok = f, true
	return nil
}

// Value returns the parsed coordinate and whether it is finite.
func (c Coordinate) Value() (float64, bool) {
	return c.value, c.ok
}

// Validator normalizes raw heartbeats into storable records. It has no
// side effects: persistence is the caller's job.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate checks shape and range and fills the ingestion timestamp when
// the producer sent none. Timestamp assignment happens here exactly once;
// stored records never change ordering on later reads.
//
// A missing or incomplete driver block is not an error: the record is
// accepted with Degraded set so consumers can render "unknown driver"
// instead of failing.
func (v *Validator) Validate(raw RawRecord) (model.TelemetryRecord, error) {
	if raw.VehicleID == nil || strings.TrimSpace(*raw.VehicleID) == "" {
		return model.TelemetryRecord{}, model.NewMissingField("vehicleId")
	}
	if raw.GPS == nil {
		return model.TelemetryRecord{}, model.NewMissingField("gps")
	}
	lat, ok := raw.GPS.Lat.Value()
	if !ok {
		return model.TelemetryRecord{}, model.NewInvalidCoordinate("gps.lat")
	}
	lng, ok := raw.GPS.Lng.Value()
	if !ok {
		return model.TelemetryRecord{}, model.NewInvalidCoordinate("gps.lng")
	}

	rec := model.TelemetryRecord{
		VehicleID: strings.TrimSpace(*raw.VehicleID),
		Driver:    raw.Driver,
		GPS:       model.GPS{Lat: lat, Lng: lng},
		Alert:     raw.Alert,
	}

	if raw.Speed != nil {
		s := *raw.Speed
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			return model.TelemetryRecord{}, model.NewInvalidSpeed("speed must be a non-negative finite number")
		}
		rec.Speed = s
	}

	if raw.Timestamp != nil {
		rec.Timestamp = *raw.Timestamp
	} else {
		rec.Timestamp = float64(v.now().UnixNano()) / 1e9
	}

	if raw.Driver == nil || raw.Driver.ID == "" || raw.Driver.Name == "" {
		rec.Degraded = true
	}
	return rec, nil
}
