// Package mqtt implements the broker side of the engine: a Paho client that
// publishes commands to per-vehicle topics, resolves acknowledgments from the
// status topic, and feeds agent-pushed telemetry into the same acceptance
// path the HTTP API uses.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/core/monitoring"
	coremqtt "github.com/fleetguard/fleetguard/core/mqtt"
	"github.com/fleetguard/fleetguard/infra/logger"
)

// DefaultTelemetryTopic is where vehicle agents push telemetry records.
const DefaultTelemetryTopic = "fleet/telemetry"

// DefaultStatusTopic is where vehicle agents report command outcomes.
const DefaultStatusTopic = "fleet/command/status"

// Config defines the connection parameters for the Paho MQTT client.
// The bridge as a whole is enabled only when Broker is set.
type Config struct {
	Broker         string          `json:"broker"`
	ClientID       string          `json:"client_id"`
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	TelemetryTopic string          `json:"telemetry_topic"`
	StatusTopic    string          `json:"status_topic"`
	UseTLS         bool            `json:"use_tls"`
	ClientCert     string          `json:"client_cert"`
	ClientKey      string          `json:"client_key"`
	CABundle       string          `json:"ca_bundle"`
	QoS            map[string]byte `json:"qos"`
	LWTTopic       string          `json:"lwt_topic"`
	LWTPayload     string          `json:"lwt_payload"`
	LWTQoS         byte            `json:"lwt_qos"`
	LWTRetain      bool            `json:"lwt_retain"`
	MaxRetries     int             `json:"max_retries"`
	BackoffMS      int             `json:"backoff_ms"`
	TLSConfig      *tls.Config     `json:"-"`
}

// Enabled reports whether a broker address is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

func (c Config) telemetryTopic() string {
	if c.TelemetryTopic == "" {
		return DefaultTelemetryTopic
	}
	return c.TelemetryTopic
}

func (c Config) statusTopic() string {
	if c.StatusTopic == "" {
		return DefaultStatusTopic
	}
	return c.StatusTopic
}

// pahoClient is the slice of paho.Client the bridge needs. Tests swap the
// constructor variable below for a fake.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// statusMessage is what agents publish after executing a command. Ok false
// means the vehicle refused or could not execute it.
type statusMessage struct {
	CommandID string `json:"commandId"`
	VehicleID string `json:"vehicleId"`
	Ok        bool   `json:"ok"`
}

// PahoClient implements coremqtt.Client over an Eclipse Paho connection.
type PahoClient struct {
	cli            pahoClient
	telemetryTopic string
	statusTopic    string
	qos            map[string]byte

	mu       sync.Mutex
	ackChans map[string]chan bool

	onTelemetry func(payload []byte)
	logger      logger.Logger
	maxRetries  int
	backoff     time.Duration
}

// NewPahoClient connects to the broker and subscribes to the command status
// topic, plus the telemetry topic when onTelemetry is non-nil. A nil
// onTelemetry yields a publish-only client.
func NewPahoClient(cfg Config, onTelemetry func(payload []byte)) (*PahoClient, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "fleetguard-" + uuid.NewString()[:8]
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		telemetryTopic: cfg.telemetryTopic(),
		statusTopic:    cfg.statusTopic(),
		qos:            cfg.QoS,
		ackChans:       make(map[string]chan bool),
		onTelemetry:    onTelemetry,
		logger:         log,
		maxRetries:     cfg.MaxRetries,
		backoff:        time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(pc.statusTopic, pc.qosFor("status"), pc.onStatus); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", pc.statusTopic, token.Error())
		}
		if pc.onTelemetry != nil {
			handler := func(_ paho.Client, msg paho.Message) { pc.onTelemetry(msg.Payload()) }
			if token := c.Subscribe(pc.telemetryTopic, pc.qosFor("telemetry"), handler); token.Wait() && token.Error() != nil {
				log.Errorf("subscribe %s: %v", pc.telemetryTopic, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *PahoClient) qosFor(class string) byte {
	if q, ok := p.qos[class]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) onStatus(_ paho.Client, msg paho.Message) {
	var m statusMessage
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode status: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.ackChans[m.CommandID]
	if ok {
		select {
		case ch <- m.Ok:
		default:
		}
		p.logger.Infof("command %s reported ok=%v", m.CommandID, m.Ok)
	}
	p.mu.Unlock()
}

// SendCommand publishes the command record to vehicle/<id>/command. The ack
// channel is registered before the first publish attempt so a fast reply is
// never lost.
func (p *PahoClient) SendCommand(rec model.CommandRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.ackChans[rec.ID] = make(chan bool, 1)
	p.mu.Unlock()

	topic := fmt.Sprintf("vehicle/%s/command", rec.VehicleID)
	qos := p.qosFor("command")
	retries := p.maxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := p.backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= retries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("sent command %s to %s", rec.ID, topic)
			break
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(backoff * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		p.mu.Lock()
		delete(p.ackChans, rec.ID)
		p.mu.Unlock()
		monitoring.CaptureException(publishErr, map[string]string{
			"module":     "mqtt",
			"vehicle_id": rec.VehicleID,
		})
		return publishErr
	}
	return nil
}

// WaitForAck blocks until the vehicle reports the command outcome or the
// timeout expires.
func (p *PahoClient) WaitForAck(commandID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[commandID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("unknown command %s", commandID)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ok := <-ch:
		p.mu.Lock()
		delete(p.ackChans, commandID)
		p.mu.Unlock()
		return ok, nil
	case <-timer.C:
		p.mu.Lock()
		delete(p.ackChans, commandID)
		p.mu.Unlock()
		return false, fmt.Errorf("%w", coremqtt.ErrAckTimeout)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
