package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/fleetguard/fleetguard/core/model"
)

// WriteTelemetryJSON writes the records to w as one JSON array.
func WriteTelemetryJSON(w io.Writer, records []model.TelemetryRecord) error {
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteTelemetryCSV writes the records to w with a fixed header row.
func WriteTelemetryCSV(w io.Writer, records []model.TelemetryRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "vehicle_id", "driver_id", "driver_name", "speed", "lat", "lng", "alert", "timestamp", "time"}); err != nil {
		return err
	}
	for _, r := range records {
		var driverID, driverName string
		if r.Driver != nil {
			driverID = r.Driver.ID
			driverName = r.Driver.Name
		}
		rec := []string{
			r.ID,
			r.VehicleID,
			driverID,
			driverName,
			strconv.FormatFloat(r.Speed, 'f', -1, 64),
			strconv.FormatFloat(r.GPS.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.GPS.Lng, 'f', -1, 64),
			strconv.FormatBool(r.Alert.Raised()),
			strconv.FormatFloat(r.Timestamp, 'f', -1, 64),
			r.Time().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCommandsJSON writes the commands to w as one JSON array.
func WriteCommandsJSON(w io.Writer, records []model.CommandRecord) error {
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteCommandsCSV writes the commands to w with a fixed header row.
func WriteCommandsCSV(w io.Writer, records []model.CommandRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "vehicle_id", "command", "status", "timestamp"}); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.ID,
			r.VehicleID,
			r.Command.String(),
			string(r.Status),
			strconv.FormatFloat(r.Timestamp, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
