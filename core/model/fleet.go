package model

// VehicleState is the derived live picture of one vehicle: its newest
// sample merged with the latched alert state. It is rebuilt from scratch
// on every aggregation pass and never mutated in place.
type VehicleState struct {
	VehicleID string    `json:"vehicleId"`
	Driver    *Driver   `json:"driver,omitempty"`
	Speed     float64   `json:"speed"`
	GPS       GPS       `json:"gps"`
	Alert     AlertFlag `json:"alert"`
	Time      string    `json:"time"`
	Timestamp float64   `json:"timestamp"`
	IsDrowsy  bool      `json:"isDrowsy"`
	// SecondsSinceAlert is nil when the vehicle never alerted inside the
	// aggregation window.
	SecondsSinceAlert *float64 `json:"secondsSinceLastAlert,omitempty"`
	Acknowledged      bool     `json:"acknowledged"`
}

// FleetStats summarizes the whole fleet at one instant.
type FleetStats struct {
	TotalVehicles   int     `json:"totalVehicles"`
	DrowsinessCount int     `json:"drowsinessCount"`
	AvgSpeed        float64 `json:"avgSpeed"`
	// TotalHistoricalAlerts counts raw alert samples across the window,
	// independent of latch smoothing.
	TotalHistoricalAlerts int `json:"totalHistoricalAlerts"`
}

// HistoryPoint is one reduced sample for trend display.
type HistoryPoint struct {
	Time          string  `json:"time"`
	Speed         float64 `json:"speed"`
	IsAlertSample int     `json:"isAlertSample"`
}

// FleetSnapshot is the output of one aggregation pass.
type FleetSnapshot struct {
	Vehicles map[string]VehicleState `json:"vehicles"`
	Stats    FleetStats              `json:"stats"`
	History  []HistoryPoint          `json:"history"`
}
