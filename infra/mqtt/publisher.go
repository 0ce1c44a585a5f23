package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/fleetguard/fleetguard/core/model"
	coremqtt "github.com/fleetguard/fleetguard/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// MockClient records sent commands and serves canned replies in tests.
type MockClient struct {
	// Sent holds the last command delivered to each vehicle.
	Sent map[string]model.CommandRecord
	// FailIDs lists vehicles whose publishes fail outright.
	FailIDs map[string]bool
	// AckResults maps command ids to the reply WaitForAck should return.
	// Missing ids time out.
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockClient creates a MockClient with empty tables.
func NewMockClient() *MockClient {
	return &MockClient{
		Sent:       make(map[string]model.CommandRecord),
		FailIDs:    make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// SendCommand records the command or fails when the vehicle is listed in
// FailIDs.
func (m *MockClient) SendCommand(rec model.CommandRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[rec.VehicleID] {
		return fmt.Errorf("publish failed")
	}
	m.Sent[rec.VehicleID] = rec
	return nil
}

// WaitForAck returns the canned reply immediately, or ErrAckTimeout when no
// reply was configured for the command.
func (m *MockClient) WaitForAck(commandID string, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[commandID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("%w", coremqtt.ErrAckTimeout)
	}
	return ok, nil
}
