package store

import (
	"context"
	"errors"

	"github.com/fleetguard/fleetguard/core/model"
)

// ErrUnavailable reports that the backing store could not serve the call,
// typically a timeout or a closed backend. Boundary handlers surface it as
// StorageUnavailable; nothing in this package retries.
var ErrUnavailable = errors.New("store unavailable")

// ErrNotFound reports that the referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// TelemetryStore is the append-only log of validated heartbeat samples.
type TelemetryStore interface {
	// InsertTelemetry persists rec and returns its assigned identifier.
	InsertTelemetry(ctx context.Context, rec model.TelemetryRecord) (string, error)
	// RecentTelemetry returns up to limit records, newest timestamp first.
	// Ties are broken by arrival order, latest arrival first. limit <= 0
	// means no cap.
	RecentTelemetry(ctx context.Context, limit int) ([]model.TelemetryRecord, error)
}

// CommandStore is the append-only log of dispatched commands.
type CommandStore interface {
	// InsertCommand persists rec and returns its assigned identifier.
	InsertCommand(ctx context.Context, rec model.CommandRecord) (string, error)
	// RecentCommands returns up to limit commands, newest timestamp first.
	RecentCommands(ctx context.Context, limit int) ([]model.CommandRecord, error)
	// UpdateCommandStatus records a delivery outcome reported back by a
	// vehicle agent. The dispatch path itself never transitions status.
	UpdateCommandStatus(ctx context.Context, id string, status model.CommandStatus) error
}

// Store bundles both logs behind a single backend.
type Store interface {
	TelemetryStore
	CommandStore
	Close() error
}
