package mqtt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fleetguard/fleetguard/core/command"
	"github.com/fleetguard/fleetguard/core/events"
	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/core/monitoring"
	coremqtt "github.com/fleetguard/fleetguard/core/mqtt"
	"github.com/fleetguard/fleetguard/infra/logger"
	"github.com/fleetguard/fleetguard/internal/eventbus"
)

// DefaultAckTimeout is how long a vehicle has to confirm a command before
// the stored record is marked failed.
const DefaultAckTimeout = 10 * time.Second

// Bridge forwards accepted commands from the event bus to the broker and
// writes the delivery outcome back onto the stored record: ACKNOWLEDGED on
// a positive reply, FAILED on a negative reply or timeout.
type Bridge struct {
	cli        coremqtt.Client
	dispatcher *command.Dispatcher
	bus        eventbus.EventBus
	log        logger.Logger
	ackTimeout time.Duration

	wg sync.WaitGroup
}

// NewBridge wires the command delivery loop. ackTimeout <= 0 falls back to
// DefaultAckTimeout.
func NewBridge(cli coremqtt.Client, dispatcher *command.Dispatcher, bus eventbus.EventBus, log logger.Logger, ackTimeout time.Duration) *Bridge {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	return &Bridge{cli: cli, dispatcher: dispatcher, bus: bus, log: log, ackTimeout: ackTimeout}
}

// Run consumes command events until ctx is canceled. Deliveries run in
// their own goroutines because each one blocks on the vehicle's reply.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.bus.SubscribeBuffered(64)
	defer b.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			b.wg.Wait()
			return
		case ev, ok := <-sub:
			if !ok {
				b.wg.Wait()
				return
			}
			ce, isCommand := ev.(events.CommandEvent)
			if !isCommand {
				continue
			}
			b.wg.Add(1)
			go func(rec model.CommandRecord) {
				defer b.wg.Done()
				defer monitoring.Recover()
				b.deliver(rec)
			}(ce.Record)
		}
	}
}

// deliver publishes one command and settles its stored status from the
// vehicle's reply.
func (b *Bridge) deliver(rec model.CommandRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := b.cli.SendCommand(rec); err != nil {
		b.log.Errorf("deliver %s to %s failed: %v", rec.Command, rec.VehicleID, err)
		monitoring.CaptureException(err, map[string]string{
			"module":     "mqtt_bridge",
			"vehicle_id": rec.VehicleID,
			"command":    rec.Command.String(),
		})
		b.settle(ctx, rec, model.StatusFailed)
		return
	}

	ok, err := b.cli.WaitForAck(rec.ID, b.ackTimeout)
	switch {
	case errors.Is(err, coremqtt.ErrAckTimeout):
		b.log.Warnf("command %s to %s timed out waiting for ack", rec.ID, rec.VehicleID)
		b.settle(ctx, rec, model.StatusFailed)
	case err != nil:
		b.log.Errorf("ack wait for %s failed: %v", rec.ID, err)
		b.settle(ctx, rec, model.StatusFailed)
	case ok:
		b.settle(ctx, rec, model.StatusAcknowledged)
	default:
		b.log.Warnf("vehicle %s rejected command %s", rec.VehicleID, rec.ID)
		b.settle(ctx, rec, model.StatusFailed)
	}
}

func (b *Bridge) settle(ctx context.Context, rec model.CommandRecord, status model.CommandStatus) {
	if err := b.dispatcher.UpdateStatus(ctx, rec.ID, rec.VehicleID, status); err != nil {
		b.log.Errorf("status update for %s failed: %v", rec.ID, err)
		monitoring.CaptureException(err, map[string]string{
			"module":     "mqtt_bridge",
			"vehicle_id": rec.VehicleID,
		})
	}
}
