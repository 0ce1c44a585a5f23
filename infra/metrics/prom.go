package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/fleetguard/fleetguard/core/metrics"
)

// PromSink exposes fleet activity as Prometheus metrics.
type PromSink struct {
	ingested     *prometheus.CounterVec
	validation   *prometheus.CounterVec
	commands     *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	acknowledged prometheus.Counter
	vehicles     prometheus.Gauge
	drowsy       prometheus.Gauge
	avgSpeed     prometheus.Gauge
	acks         prometheus.Gauge
	refresh      prometheus.Histogram
}

// NewPromSink registers fleet metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately, see StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global one. Collectors that were
// already registered are reused, so repeated construction is safe.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error

	s.ingested, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_records_ingested_total",
		Help: "Accepted telemetry records, split by degraded driver data",
	}, []string{"degraded"}))
	if err != nil {
		return nil, err
	}
	s.validation, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_validation_failures_total",
		Help: "Rejected telemetry payloads by failure kind",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}
	s.commands, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commands_submitted_total",
		Help: "Accepted control commands by type",
	}, []string{"command"}))
	if err != nil {
		return nil, err
	}
	s.rejections, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "command_rejections_total",
		Help: "Refused command submissions by failure kind",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}
	s.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_transitions_total",
		Help: "Latched drowsiness state flips",
	}, []string{"state"}))
	if err != nil {
		return nil, err
	}
	s.acknowledged, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acknowledgments_total",
		Help: "Operator acknowledgments received",
	}))
	if err != nil {
		return nil, err
	}
	s.vehicles, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_vehicles",
		Help: "Vehicles present in the current aggregation window",
	}))
	if err != nil {
		return nil, err
	}
	s.drowsy, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_drowsy_vehicles",
		Help: "Vehicles currently latched drowsy",
	}))
	if err != nil {
		return nil, err
	}
	s.avgSpeed, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_avg_speed_kmh",
		Help: "Mean of the latest speed per vehicle",
	}))
	if err != nil {
		return nil, err
	}
	s.acks, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "acknowledgments_active",
		Help: "Unexpired operator acknowledgments",
	}))
	if err != nil {
		return nil, err
	}
	s.refresh, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleet_refresh_duration_seconds",
		Help:    "Time spent pulling the window and recomputing fleet state",
		Buckets: prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing the existing collector when one with the
// same descriptor is already present.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordFleetSnapshot updates the fleet-level gauges and the refresh
// duration histogram.
func (s *PromSink) RecordFleetSnapshot(ev coremetrics.FleetSnapshotEvent) error {
	s.vehicles.Set(float64(ev.Vehicles))
	s.drowsy.Set(float64(ev.Drowsy))
	s.avgSpeed.Set(ev.AvgSpeed)
	s.acks.Set(float64(ev.ActiveAcks))
	s.refresh.Observe(ev.Duration.Seconds())
	return nil
}

// RecordIngest counts one accepted record.
func (s *PromSink) RecordIngest(ev coremetrics.IngestEvent) error {
	s.ingested.WithLabelValues(strconv.FormatBool(ev.Degraded)).Inc()
	return nil
}

// RecordValidationFailure counts one rejected payload.
func (s *PromSink) RecordValidationFailure(ev coremetrics.ValidationFailureEvent) error {
	s.validation.WithLabelValues(ev.Kind).Inc()
	return nil
}

// RecordCommand counts one accepted command.
func (s *PromSink) RecordCommand(ev coremetrics.CommandEvent) error {
	s.commands.WithLabelValues(ev.Record.Command.String()).Inc()
	return nil
}

// RecordCommandRejection counts one refused submission.
func (s *PromSink) RecordCommandRejection(ev coremetrics.CommandRejectionEvent) error {
	s.rejections.WithLabelValues(ev.Kind).Inc()
	return nil
}

// RecordAlertTransition counts one latch flip.
func (s *PromSink) RecordAlertTransition(ev coremetrics.AlertTransitionEvent) error {
	state := "cleared"
	if ev.Raised {
		state = "raised"
	}
	s.transitions.WithLabelValues(state).Inc()
	return nil
}

// RecordAcknowledge counts one operator acknowledgment.
func (s *PromSink) RecordAcknowledge(coremetrics.AcknowledgeEvent) error {
	s.acknowledged.Inc()
	return nil
}
