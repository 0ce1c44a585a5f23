// Package app assembles the engine from configuration: storage, validation,
// aggregation, acknowledgment tracking, command dispatch, the HTTP API, and
// the optional broker bridge.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetguard/fleetguard/api"
	apicommands "github.com/fleetguard/fleetguard/api/commands"
	apifleet "github.com/fleetguard/fleetguard/api/fleet"
	apitelemetry "github.com/fleetguard/fleetguard/api/telemetry"
	"github.com/fleetguard/fleetguard/config"
	"github.com/fleetguard/fleetguard/core/ack"
	"github.com/fleetguard/fleetguard/core/command"
	"github.com/fleetguard/fleetguard/core/fleet"
	"github.com/fleetguard/fleetguard/core/latch"
	coremetrics "github.com/fleetguard/fleetguard/core/metrics"
	coremon "github.com/fleetguard/fleetguard/core/monitoring"
	"github.com/fleetguard/fleetguard/core/store"
	"github.com/fleetguard/fleetguard/core/telemetry"
	"github.com/fleetguard/fleetguard/infra/logger"
	"github.com/fleetguard/fleetguard/infra/metrics"
	"github.com/fleetguard/fleetguard/infra/monitoring"
	"github.com/fleetguard/fleetguard/infra/mqtt"
	"github.com/fleetguard/fleetguard/internal/eventbus"
)

// Service owns every long-running component of the engine.
type Service struct {
	server    *api.Server
	refresher *fleet.Refresher
	tracker   *ack.Tracker
	bridge    *mqtt.Bridge

	bus     eventbus.EventBus
	sink    coremetrics.MetricsSink
	store   store.Store
	archive *store.Archive
	client  *mqtt.PahoClient
	log     logger.Logger

	promAddr      string
	sweepInterval time.Duration
}

// New builds a Service from the configuration. Nothing starts running until
// Run is called.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	var st store.Store
	switch cfg.Store.Backend {
	case "sqlite":
		st, err = store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
	default:
		st = store.NewMemoryStore()
	}

	var archive *store.Archive
	if cfg.Store.Archive.Enabled {
		archive, err = store.NewArchive(cfg.Store.Archive.Dir, cfg.Store.Archive.MaxSizeMB, cfg.Store.Archive.MaxBackups, cfg.Store.Archive.MaxAgeDays)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	bus := eventbus.New()
	validator := telemetry.NewValidator()
	dispatcher := command.NewDispatcher(st, bus, logger.New("dispatcher"))
	tracker := ack.NewTracker(cfg.Ack.TTL())
	resolver := latch.NewResolver(cfg.Fleet.WindowSeconds)
	aggregator := fleet.NewAggregator(resolver, cfg.Fleet.HistoryPoints)
	holder := fleet.NewHolder()
	refresher := fleet.NewRefresher(st, aggregator, tracker, holder, bus, logger.New("refresher"), cfg.Fleet.RefreshInterval(), cfg.Fleet.FetchLimit)

	handlers := api.Handlers{
		Telemetry: apitelemetry.NewHandler(validator, st, archive, sink, logger.New("telemetry_api"), cfg.API.TelemetryLimit),
		Commands:  apicommands.NewHandler(dispatcher, sink, logger.New("command_api"), cfg.API.CommandLimit),
		Fleet:     apifleet.NewHandler(holder, tracker, bus, logger.New("fleet_api")),
	}
	server := api.NewServer(cfg.API.Addr, handlers, logger.New("http"))

	svc := &Service{
		server:        server,
		refresher:     refresher,
		tracker:       tracker,
		bus:           bus,
		sink:          sink,
		store:         st,
		archive:       archive,
		log:           logg,
		promAddr:      cfg.API.PromAddr,
		sweepInterval: cfg.Ack.SweepInterval(),
	}

	if cfg.MQTT.Enabled() {
		ingestor := mqtt.NewIngestor(validator, st, archive, sink, logger.New("mqtt_ingest"))
		client, err := mqtt.NewPahoClient(cfg.MQTT, ingestor.Handle)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
		svc.bridge = mqtt.NewBridge(client, dispatcher, bus, logger.New("mqtt_bridge"), 0)
	}

	return svc, nil
}

// Run starts every component and blocks until ctx is canceled or the API
// server fails.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	go s.refresher.Run(ctx)
	go s.tracker.Run(ctx, s.sweepInterval, logger.New("ack_tracker"))
	if s.bridge != nil {
		go func() {
			defer coremon.Recover()
			s.bridge.Run(ctx)
		}()
	}
	if s.promAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s.server.Start(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.client != nil {
		s.client.Disconnect()
	}
	s.bus.Close()
	var firstErr error
	if s.archive != nil {
		if err := s.archive.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	coremon.Flush(2 * time.Second)
	return firstErr
}
