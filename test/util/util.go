// Package util provides helpers shared across integration tests.
//
// NewStack wires the full ingest-to-snapshot pipeline over a memory store
// and serves the HTTP API from an httptest server.
//
// StartMosquitto launches a disposable Mosquitto broker in a Docker
// container for MQTT-based tests. It returns the broker URL and a cleanup
// function.
package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fleetguard/fleetguard/api"
	apicommands "github.com/fleetguard/fleetguard/api/commands"
	apifleet "github.com/fleetguard/fleetguard/api/fleet"
	apitelemetry "github.com/fleetguard/fleetguard/api/telemetry"
	"github.com/fleetguard/fleetguard/core/ack"
	"github.com/fleetguard/fleetguard/core/command"
	"github.com/fleetguard/fleetguard/core/fleet"
	"github.com/fleetguard/fleetguard/core/latch"
	"github.com/fleetguard/fleetguard/core/store"
	"github.com/fleetguard/fleetguard/core/telemetry"
	"github.com/fleetguard/fleetguard/infra/logger"
	"github.com/fleetguard/fleetguard/internal/eventbus"
)

const (
	MosquittoReadyTimeout = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// StackConfig tunes the pipeline under test. Zero values fall back to the
// production defaults.
type StackConfig struct {
	WindowSeconds float64
	AckTTL        time.Duration
	FetchLimit    int
}

// Stack is one fully wired service instance: memory store, refresh loop
// parts, and the HTTP API behind an httptest server.
type Stack struct {
	Store      *store.MemoryStore
	Bus        *eventbus.Bus
	Tracker    *ack.Tracker
	Holder     *fleet.Holder
	Refresher  *fleet.Refresher
	Dispatcher *command.Dispatcher
	Server     *httptest.Server
}

// NewStack builds a Stack and registers its teardown with t.Cleanup.
func NewStack(t *testing.T, cfg StackConfig) *Stack {
	t.Helper()

	st := store.NewMemoryStore()
	bus := eventbus.New()
	tracker := ack.NewTracker(cfg.AckTTL)
	resolver := latch.NewResolver(cfg.WindowSeconds)
	agg := fleet.NewAggregator(resolver, 0)
	holder := fleet.NewHolder()
	ref := fleet.NewRefresher(st, agg, tracker, holder, bus, logger.NopLogger{}, 0, cfg.FetchLimit)
	dispatcher := command.NewDispatcher(st, bus, logger.NopLogger{})

	handlers := api.Handlers{
		Telemetry: apitelemetry.NewHandler(telemetry.NewValidator(), st, nil, nil, logger.NopLogger{}, 0),
		Commands:  apicommands.NewHandler(dispatcher, nil, logger.NopLogger{}, 0),
		Fleet:     apifleet.NewHandler(holder, tracker, bus, logger.NopLogger{}),
	}
	ts := httptest.NewServer(api.NewRouter(handlers))
	t.Cleanup(ts.Close)
	t.Cleanup(bus.Close)

	return &Stack{
		Store:      st,
		Bus:        bus,
		Tracker:    tracker,
		Holder:     holder,
		Refresher:  ref,
		Dispatcher: dispatcher,
		Server:     ts,
	}
}

// Refresh runs one aggregation pass so the next snapshot read sees every
// record inserted so far.
func (s *Stack) Refresh() {
	s.Refresher.RefreshOnce(context.Background())
}

// PostJSON sends body to path and returns the response. The caller owns the
// body.
func (s *Stack) PostJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal %s body: %v", path, err)
	}
	resp, err := http.Post(s.Server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// GetJSON fetches path and decodes the response body into out.
func (s *Stack) GetJSON(t *testing.T, path string, out any) {
	t.Helper()
	resp, err := http.Get(s.Server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

// WaitUntil polls cond until it reports true or the context is done.
func WaitUntil(ctx context.Context, cond func() bool) error {
	for {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("condition not met: %w", ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// StartMosquitto launches a temporary Mosquitto broker inside a Docker
// container and returns its broker URL along with a cleanup function.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
log_type notice
connection_messages true
`

	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	cleanup := func() {
		_ = cont.Terminate(context.Background())
		_ = os.RemoveAll(dir)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, broker); err != nil {
		cleanup()
		return "", nil, err
	}

	return broker, cleanup, nil
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	for {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
