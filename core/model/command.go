package model

import (
	"encoding/json"
	"fmt"
)

// CommandType enumerates the remote interventions a dispatcher may issue.
// The set is closed: anything else is rejected before it reaches storage.
type CommandType int

const (
	CommandKillEngine CommandType = iota
	CommandTriggerAlarm
	CommandReset
)

// String returns the wire name of the command.
func (t CommandType) String() string {
	switch t {
	case CommandKillEngine:
		return "KILL_ENGINE"
	case CommandTriggerAlarm:
		return "TRIGGER_ALARM"
	case CommandReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// ParseCommandType maps a wire name to its CommandType. Matching is exact:
// casing and whitespace are the caller's problem.
func ParseCommandType(s string) (CommandType, bool) {
	switch s {
	case "KILL_ENGINE":
		return CommandKillEngine, true
	case "TRIGGER_ALARM":
		return CommandTriggerAlarm, true
	case "RESET":
		return CommandReset, true
	default:
		return 0, false
	}
}

// CommandTypeNames lists the accepted wire names in declaration order.
func CommandTypeNames() []string {
	return []string{
		CommandKillEngine.String(),
		CommandTriggerAlarm.String(),
		CommandReset.String(),
	}
}

func (t CommandType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *CommandType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, ok := ParseCommandType(s)
	if !ok {
		return fmt.Errorf("unknown command type %q", s)
	}
	*t = parsed
	return nil
}

// CommandStatus tracks a command through its delivery lifecycle. New
// submissions always start PENDING; onboard agents move them onward.
type CommandStatus string

const (
	StatusPending      CommandStatus = "PENDING"
	StatusAcknowledged CommandStatus = "ACKNOWLEDGED"
	StatusFailed       CommandStatus = "FAILED"
)

// CommandRecord is one dispatched command as persisted. ID and Timestamp
// are assigned server-side at submission time, never taken from clients.
type CommandRecord struct {
	ID        string        `json:"id"`
	VehicleID string        `json:"vehicleId"`
	Command   CommandType   `json:"command"`
	Driver    *Driver       `json:"driver,omitempty"`
	Timestamp float64       `json:"timestamp"`
	Status    CommandStatus `json:"status"`
}
