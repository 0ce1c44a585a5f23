package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fleetguard/fleetguard/core/model"
)

// MemoryStore keeps both logs in process memory. It is the default backend
// for development and tests; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []model.TelemetryRecord
	commands []model.CommandRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) InsertTelemetry(_ context.Context, rec model.TelemetryRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.NewString()
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *MemoryStore) RecentTelemetry(_ context.Context, limit int) ([]model.TelemetryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TelemetryRecord, len(s.records))
	for i, r := range s.records {
		out[len(s.records)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) InsertCommand(_ context.Context, rec model.CommandRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.NewString()
	s.commands = append(s.commands, rec)
	return rec.ID, nil
}

func (s *MemoryStore) RecentCommands(_ context.Context, limit int) ([]model.CommandRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CommandRecord, len(s.commands))
	for i, c := range s.commands {
		out[len(s.commands)-1-i] = c
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateCommandStatus(_ context.Context, id string, status model.CommandStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.commands {
		if s.commands[i].ID == id {
			s.commands[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Close() error { return nil }
