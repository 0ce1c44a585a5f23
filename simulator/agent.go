// Package simulator emulates vehicle onboard units against a running
// engine: each agent posts heartbeats to the ingest endpoint, polls for
// pending commands the way the production firmware does, and plays
// drowsiness episodes so the latching path gets exercised end to end.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/infra/logger"
)

// Firmware constants mirrored from the onboard unit.
const (
	// HeartbeatInterval is the cadence of telemetry posts.
	HeartbeatInterval = 5 * time.Second
	// PollInterval is the cadence of command polls.
	PollInterval = time.Second
	// CommandFreshness is how old a pending command may be and still be
	// executed. Anything older is assumed already handled or abandoned.
	CommandFreshness = 5 * time.Second
	// AlarmDuration is how long TRIGGER_ALARM sounds before self-reset.
	AlarmDuration = 10 * time.Second
	// EngineCutDuration is how long KILL_ENGINE holds the engine off.
	EngineCutDuration = time.Second
)

// Agent is one simulated onboard unit.
type Agent struct {
	VehicleID string
	Driver    model.Driver
	// Server is the engine base URL, e.g. http://localhost:8080.
	Server string
	// Heartbeat overrides HeartbeatInterval when positive.
	Heartbeat time.Duration
	// Poll overrides PollInterval when positive.
	Poll time.Duration
	// DrowsyChance is the probability per heartbeat of starting a
	// drowsiness episode.
	DrowsyChance float64
	// EpisodeLength is how long a started episode lasts.
	EpisodeLength time.Duration
	// OmitDriver posts heartbeats without the driver block, exercising
	// the degraded-record path.
	OmitDriver bool
	// OnCommand, when set, observes every command the agent executes.
	OnCommand func(rec model.CommandRecord)

	Client *http.Client
	Log    logger.Logger

	mu          sync.Mutex
	drowsyUntil time.Time
	engineUntil time.Time
	alarmUntil  time.Time
	processed   map[string]bool
	speed       float64
	lat, lng    float64
	rng         *rand.Rand
}

// heartbeat is the wire shape the firmware posts. Alert carries either the
// string "Sleeping" or boolean false, matching the detector's output.
type heartbeat struct {
	VehicleID string        `json:"vehicleId"`
	Driver    *model.Driver `json:"driver,omitempty"`
	Speed     float64       `json:"speed"`
	GPS       gpsPoint      `json:"gps"`
	Alert     any           `json:"alert"`
	Timestamp float64       `json:"timestamp"`
}

type gpsPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (a *Agent) init() {
	if a.Client == nil {
		a.Client = &http.Client{Timeout: 5 * time.Second}
	}
	if a.Log == nil {
		a.Log = logger.NopLogger{}
	}
	if a.Heartbeat <= 0 {
		a.Heartbeat = HeartbeatInterval
	}
	if a.Poll <= 0 {
		a.Poll = PollInterval
	}
	if a.EpisodeLength <= 0 {
		a.EpisodeLength = 20 * time.Second
	}
	a.processed = make(map[string]bool)
	a.rng = rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(len(a.VehicleID))))
	a.speed = 30 + a.rng.Float64()*40
	// Depot coordinates; each agent drifts from here.
	a.lat, a.lng = 24.879915, 88.271300
}

// Run posts heartbeats and polls for commands until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	a.init()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.heartbeatLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		a.pollLoop(ctx)
	}()
	wg.Wait()
	return nil
}

func (a *Agent) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(a.Heartbeat)
	defer ticker.Stop()
	a.postHeartbeat(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.postHeartbeat(ctx)
		}
	}
}

func (a *Agent) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(a.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.pollCommands(ctx)
		}
	}
}

func (a *Agent) postHeartbeat(ctx context.Context) {
	now := time.Now()

	a.mu.Lock()
	if a.drowsyUntil.Before(now) && a.rng.Float64() < a.DrowsyChance {
		a.drowsyUntil = now.Add(a.EpisodeLength)
		a.Log.Warnf("%s: drowsiness episode begins", a.VehicleID)
	}
	drowsy := now.Before(a.drowsyUntil)
	engineOff := now.Before(a.engineUntil)
	a.wander(engineOff)
	hb := heartbeat{
		VehicleID: a.VehicleID,
		Speed:     a.speed,
		GPS:       gpsPoint{Lat: a.lat, Lng: a.lng},
		Timestamp: float64(now.UnixNano()) / 1e9,
	}
	a.mu.Unlock()

	if !a.OmitDriver {
		driver := a.Driver
		hb.Driver = &driver
	}
	if drowsy {
		hb.Alert = "Sleeping"
	} else {
		hb.Alert = false
	}

	body, err := json.Marshal(hb)
	if err != nil {
		a.Log.Errorf("%s: marshal heartbeat: %v", a.VehicleID, err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Server+"/api/telemetry", bytes.NewReader(body))
	if err != nil {
		a.Log.Errorf("%s: build request: %v", a.VehicleID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.Client.Do(req)
	if err != nil {
		a.Log.Warnf("%s: heartbeat failed: %v", a.VehicleID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		a.Log.Warnf("%s: heartbeat rejected: %s", a.VehicleID, resp.Status)
	}
}

// wander nudges speed and position. The engine being cut pins speed to zero.
func (a *Agent) wander(engineOff bool) {
	if engineOff {
		a.speed = 0
		return
	}
	a.speed += a.rng.Float64()*10 - 5
	if a.speed < 5 {
		a.speed = 5
	}
	if a.speed > 80 {
		a.speed = 80
	}
	a.lat += (a.rng.Float64() - 0.5) / 5000
	a.lng += (a.rng.Float64() - 0.5) / 5000
}

// pollCommands fetches recent commands and executes the ones addressed to
// this vehicle that are still pending, fresh, and not yet seen.
func (a *Agent) pollCommands(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Server+"/api/commands", nil)
	if err != nil {
		return
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		a.Log.Warnf("%s: command poll failed: %v", a.VehicleID, err)
		return
	}
	defer resp.Body.Close()
	var records []model.CommandRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		a.Log.Warnf("%s: decode commands: %v", a.VehicleID, err)
		return
	}

	now := time.Now()
	for _, rec := range records {
		if rec.VehicleID != a.VehicleID || rec.Status != model.StatusPending {
			continue
		}
		age := float64(now.UnixNano())/1e9 - rec.Timestamp
		if age > CommandFreshness.Seconds() {
			continue
		}
		a.mu.Lock()
		seen := a.processed[rec.ID]
		if !seen {
			a.processed[rec.ID] = true
		}
		a.mu.Unlock()
		if seen {
			continue
		}
		a.execute(rec)
	}
}

func (a *Agent) execute(rec model.CommandRecord) {
	now := time.Now()
	a.mu.Lock()
	switch rec.Command {
	case model.CommandTriggerAlarm:
		a.alarmUntil = now.Add(AlarmDuration)
		a.Log.Infof("%s: alarm on for %s", a.VehicleID, AlarmDuration)
	case model.CommandKillEngine:
		a.engineUntil = now.Add(EngineCutDuration)
		a.Log.Infof("%s: engine cut for %s", a.VehicleID, EngineCutDuration)
	case model.CommandReset:
		a.drowsyUntil = time.Time{}
		a.Log.Infof("%s: drowsiness flag cleared", a.VehicleID)
	}
	a.mu.Unlock()

	if a.OnCommand != nil {
		a.OnCommand(rec)
	}
}

// Drowsy reports whether the agent is currently in an episode.
func (a *Agent) Drowsy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Now().Before(a.drowsyUntil)
}

// Alarming reports whether the cab alarm is currently sounding.
func (a *Agent) Alarming() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Now().Before(a.alarmUntil)
}

// BeginEpisode starts a drowsiness episode of the given length right away.
// Zero uses EpisodeLength.
func (a *Agent) BeginEpisode(d time.Duration) {
	if d <= 0 {
		d = a.EpisodeLength
	}
	a.mu.Lock()
	a.drowsyUntil = time.Now().Add(d)
	a.mu.Unlock()
}

// String identifies the agent in logs.
func (a *Agent) String() string {
	return fmt.Sprintf("agent %s (%s)", a.VehicleID, a.Driver.Name)
}
