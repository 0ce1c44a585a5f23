package mqtt

import (
	"time"

	"github.com/fleetguard/fleetguard/core/model"
)

// Client pushes dispatched commands to the per-vehicle command topics and
// tracks the acknowledgment each vehicle sends back on the status topic.
type Client interface {
	// SendCommand publishes the stored command record to the topic of the
	// vehicle it addresses. The record id is the acknowledgment key.
	SendCommand(rec model.CommandRecord) error

	// WaitForAck blocks until the vehicle acknowledges (true), rejects
	// (false), or the timeout expires with ErrAckTimeout.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}
