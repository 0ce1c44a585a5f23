package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/fleetguard/fleetguard/core/metrics"
	"github.com/fleetguard/fleetguard/infra/logger"
)

// InfluxSink writes fleet observations to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing time-series backend
// never blocks the service.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordFleetSnapshot writes one fleet_snapshot point per pass.
func (s *InfluxSink) RecordFleetSnapshot(ev coremetrics.FleetSnapshotEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fleet_snapshot").
		AddTag("component", "fleet_refresher").
		AddField("vehicles", ev.Vehicles).
		AddField("drowsy", ev.Drowsy).
		AddField("avg_speed", round3(ev.AvgSpeed)).
		AddField("active_acks", ev.ActiveAcks).
		AddField("refresh_ms", float64(ev.Duration.Microseconds())/1000).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordVehicleState writes one vehicle_state point per vehicle and pass.
func (s *InfluxSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st := ev.State
	p := write.NewPointWithMeasurement("vehicle_state").
		AddTag("vehicle_id", st.VehicleID).
		AddTag("drowsy", strconv.FormatBool(st.IsDrowsy)).
		AddTag("acknowledged", strconv.FormatBool(st.Acknowledged)).
		AddField("speed", round3(st.Speed)).
		AddField("lat", st.GPS.Lat).
		AddField("lng", st.GPS.Lng)
	if st.SecondsSinceAlert != nil {
		p.AddField("seconds_since_alert", round3(*st.SecondsSinceAlert))
	}
	p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCommand writes one command_event point per accepted command.
func (s *InfluxSink) RecordCommand(ev coremetrics.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec := ev.Record
	p := write.NewPointWithMeasurement("command_event").
		AddTag("vehicle_id", rec.VehicleID).
		AddTag("command", rec.Command.String()).
		AddTag("status", string(rec.Status)).
		AddTag("command_id", rec.ID).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCommandRejection writes one command_rejected point.
func (s *InfluxSink) RecordCommandRejection(ev coremetrics.CommandRejectionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("command_rejected").
		AddTag("kind", ev.Kind).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}
