package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleetguard/fleetguard/core/events"
	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/core/store"
	"github.com/fleetguard/fleetguard/infra/logger"
	"github.com/fleetguard/fleetguard/internal/eventbus"
)

type failingCommandStore struct{}

func (failingCommandStore) InsertCommand(context.Context, model.CommandRecord) (string, error) {
	return "", store.ErrUnavailable
}

func (failingCommandStore) RecentCommands(context.Context, int) ([]model.CommandRecord, error) {
	return nil, store.ErrUnavailable
}

func (failingCommandStore) UpdateCommandStatus(context.Context, string, model.CommandStatus) error {
	return store.ErrUnavailable
}

func TestSubmitAcceptsKnownCommand(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	bus := eventbus.New()
	sub := bus.SubscribeBuffered(4)

	d := NewDispatcher(st, bus, logger.NopLogger{})
	at := time.Date(2024, 3, 1, 9, 30, 0, 500_000_000, time.UTC)
	d.now = func() time.Time { return at }

	rec, err := d.Submit(ctx, Request{
		VehicleID: "BUS12",
		Command:   "TRIGGER_ALARM",
		Driver:    &model.Driver{ID: "d1", Name: "Ama Mensah"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.ID == "" {
		t.Errorf("expected server-assigned id")
	}
	if rec.Status != model.StatusPending {
		t.Errorf("expected PENDING, got %s", rec.Status)
	}
	if want := float64(at.UnixNano()) / 1e9; rec.Timestamp != want {
		t.Errorf("expected server timestamp %v, got %v", want, rec.Timestamp)
	}
	if rec.Command != model.CommandTriggerAlarm {
		t.Errorf("expected TRIGGER_ALARM, got %s", rec.Command)
	}

	stored, err := st.RecentCommands(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != rec.ID {
		t.Errorf("expected persisted record, got %+v", stored)
	}

	select {
	case ev := <-sub:
		ce, ok := ev.(events.CommandEvent)
		if !ok {
			t.Fatalf("expected CommandEvent, got %T", ev)
		}
		if ce.Record.ID != rec.ID {
			t.Errorf("event carries id %s, want %s", ce.Record.ID, rec.ID)
		}
	default:
		t.Fatalf("expected a command event on the bus")
	}
}

func TestSubmitRejectsUnknownCommand(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	bus := eventbus.New()
	sub := bus.SubscribeBuffered(4)

	d := NewDispatcher(st, bus, logger.NopLogger{})
	_, err := d.Submit(ctx, Request{VehicleID: "BUS12", Command: "HONK"})

	verr, ok := model.AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Kind != model.KindInvalidCommand {
		t.Errorf("expected InvalidCommand, got %s", verr.Kind)
	}

	stored, err := st.RecentCommands(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("rejected submission must leave no trace, got %+v", stored)
	}
	select {
	case ev := <-sub:
		t.Fatalf("unexpected event for rejected submission: %v", ev)
	default:
	}
}

func TestSubmitMissingFields(t *testing.T) {
	d := NewDispatcher(store.NewMemoryStore(), nil, logger.NopLogger{})
	cases := []struct {
		name  string
		req   Request
		field string
	}{
		{"no vehicle", Request{Command: "RESET"}, "vehicleId"},
		{"blank vehicle", Request{VehicleID: "   ", Command: "RESET"}, "vehicleId"},
		{"no command", Request{VehicleID: "BUS12"}, "command"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Submit(context.Background(), tc.req)
			verr, ok := model.AsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Kind != model.KindMissingField || verr.Field != tc.field {
				t.Errorf("expected MissingField on %q, got %s on %q", tc.field, verr.Kind, verr.Field)
			}
		})
	}
}

func TestSubmitStoreUnavailable(t *testing.T) {
	d := NewDispatcher(failingCommandStore{}, nil, logger.NopLogger{})
	_, err := d.Submit(context.Background(), Request{VehicleID: "BUS12", Command: "RESET"})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	bus := eventbus.New()
	sub := bus.SubscribeBuffered(4)
	d := NewDispatcher(st, bus, logger.NopLogger{})

	rec, err := d.Submit(ctx, Request{VehicleID: "BUS12", Command: "KILL_ENGINE"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-sub // command event

	if err := d.UpdateStatus(ctx, rec.ID, rec.VehicleID, model.StatusAcknowledged); err != nil {
		t.Fatalf("update status: %v", err)
	}
	stored, err := d.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if stored[0].Status != model.StatusAcknowledged {
		t.Errorf("expected ACKNOWLEDGED, got %s", stored[0].Status)
	}

	select {
	case ev := <-sub:
		se, ok := ev.(events.CommandStatusEvent)
		if !ok {
			t.Fatalf("expected CommandStatusEvent, got %T", ev)
		}
		if se.CommandID != rec.ID || se.Status != model.StatusAcknowledged {
			t.Errorf("unexpected status event %+v", se)
		}
	default:
		t.Fatalf("expected a status event on the bus")
	}

	if err := d.UpdateStatus(ctx, "missing", "BUS12", model.StatusFailed); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}
