package ack

import (
	"context"
	"sync"
	"time"

	"github.com/fleetguard/fleetguard/core/logger"
)

// DefaultTTL is how long an operator acknowledgment suppresses the urgent
// alert treatment for a vehicle.
const DefaultTTL = 5 * time.Minute

// Tracker records which vehicles an operator has acknowledged, with
// automatic timed expiry. An entry whose expiry is not in the future is
// logically absent: every read checks expiry itself and never depends on
// the sweep having run.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Acknowledge sets or refreshes the entry for vehicleID and returns the new
// expiry. Repeated calls extend the window; they never stack or error.
func (t *Tracker) Acknowledge(vehicleID string) time.Time {
	expiry := t.now().Add(t.ttl)
	t.mu.Lock()
	t.entries[vehicleID] = expiry
	t.mu.Unlock()
	return expiry
}

// IsAcknowledged reports whether vehicleID has an unexpired entry at now.
// Pure read: expired entries are treated as absent without being removed.
func (t *Tracker) IsAcknowledged(vehicleID string, now time.Time) bool {
	t.mu.RLock()
	expiry, ok := t.entries[vehicleID]
	t.mu.RUnlock()
	return ok && expiry.After(now)
}

// Sweep removes entries whose expiry is at or before now and returns how
// many were dropped. Running it more or less often only changes memory
// footprint, never what readers observe.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, expiry := range t.entries {
		if !expiry.After(now) {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

// Active counts unexpired entries at now.
func (t *Tracker) Active(now time.Time) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, expiry := range t.entries {
		if expiry.After(now) {
			n++
		}
	}
	return n
}

// Run sweeps on a fixed cadence until ctx is cancelled. It is scheduled
// independently of the telemetry refresh loop so neither can delay the
// other.
func (t *Tracker) Run(ctx context.Context, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := t.Sweep(t.now()); removed > 0 {
				log.Debugf("ack sweep removed %d expired entries", removed)
			}
		}
	}
}
