package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fleetguard/fleetguard/core/model"
)

// SampleDef is one telemetry sample in a fixture. Offsets are relative to
// the scenario anchor so fixtures stay readable; the latch resolves against
// the batch's own newest timestamp, so absolute time never matters.
type SampleDef struct {
	VehicleID     string  `yaml:"vehicle_id"`
	Speed         float64 `yaml:"speed"`
	Alert         any     `yaml:"alert,omitempty"`
	OffsetSeconds float64 `yaml:"offset_seconds"`
}

func (s SampleDef) ToModel(base float64) model.TelemetryRecord {
	return model.TelemetryRecord{
		VehicleID: s.VehicleID,
		Speed:     s.Speed,
		Alert:     model.NewAlertFlag(s.Alert),
		Timestamp: base + s.OffsetSeconds,
	}
}

// ExpectedVehicle is the latched state one vehicle must end up in.
type ExpectedVehicle struct {
	Drowsy            bool     `yaml:"drowsy"`
	SecondsSinceAlert *float64 `yaml:"seconds_since_alert,omitempty"`
}

type Expected struct {
	DrowsinessCount  int                        `yaml:"drowsiness_count"`
	AvgSpeed         *float64                   `yaml:"avg_speed,omitempty"`
	HistoricalAlerts *int                       `yaml:"historical_alerts,omitempty"`
	Vehicles         map[string]ExpectedVehicle `yaml:"vehicles"`
}

type Scenario struct {
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description,omitempty"`
	WindowSeconds float64     `yaml:"window_seconds,omitempty"`
	Samples       []SampleDef `yaml:"samples"`
	Expected      Expected    `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
