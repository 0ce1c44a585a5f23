package model

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestAlertFlagRaised(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"Sleeping"`, true},
		{`"true"`, true},
		{`"awake"`, false},
		{`null`, false},
		{`42`, false},
	}
	for _, c := range cases {
		var f AlertFlag
		if err := json.Unmarshal([]byte(c.raw), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", c.raw, err)
		}
		if got := f.Raised(); got != c.want {
			t.Errorf("Raised(%s) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestAlertFlagRoundTrip(t *testing.T) {
	for _, raw := range []string{`true`, `false`, `"Sleeping"`} {
		var f AlertFlag
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		out, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(out) != raw {
			t.Errorf("round trip of %s produced %s", raw, out)
		}
	}

	// Unset flags serialize as a plain false so readers never see null.
	out, err := json.Marshal(AlertFlag{})
	if err != nil {
		t.Fatalf("marshal zero flag: %v", err)
	}
	if string(out) != "false" {
		t.Errorf("zero flag serialized as %s", out)
	}
}

func TestTelemetryRecordTime(t *testing.T) {
	r := TelemetryRecord{Timestamp: 1700000000.5}
	got := r.Time()
	if got.Unix() != 1700000000 {
		t.Errorf("Time().Unix() = %d, want 1700000000", got.Unix())
	}
	if got.Nanosecond() != 5e8 {
		t.Errorf("Time().Nanosecond() = %d, want 500000000", got.Nanosecond())
	}
}

func TestParseCommandType(t *testing.T) {
	for _, name := range CommandTypeNames() {
		ct, ok := ParseCommandType(name)
		if !ok {
			t.Fatalf("ParseCommandType(%q) not ok", name)
		}
		if ct.String() != name {
			t.Errorf("round trip of %q produced %q", name, ct.String())
		}
	}

	for _, bad := range []string{"", "kill_engine", "KILL_ENGINE ", "SELF_DESTRUCT"} {
		if _, ok := ParseCommandType(bad); ok {
			t.Errorf("ParseCommandType(%q) unexpectedly ok", bad)
		}
	}
}

func TestCommandTypeJSON(t *testing.T) {
	out, err := json.Marshal(CommandTriggerAlarm)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"TRIGGER_ALARM"` {
		t.Errorf("marshal produced %s", out)
	}

	var ct CommandType
	if err := json.Unmarshal([]byte(`"RESET"`), &ct); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ct != CommandReset {
		t.Errorf("unmarshal produced %v", ct)
	}
	if err := json.Unmarshal([]byte(`"NOPE"`), &ct); err == nil {
		t.Error("unmarshal of unknown command did not fail")
	}
}

func TestAsValidation(t *testing.T) {
	verr := NewInvalidCommand("NOPE", CommandTypeNames())
	wrapped := fmt.Errorf("submit: %w", verr)

	got, ok := AsValidation(wrapped)
	if !ok {
		t.Fatal("AsValidation did not find the wrapped error")
	}
	if got.Kind != KindInvalidCommand {
		t.Errorf("Kind = %q, want %q", got.Kind, KindInvalidCommand)
	}

	if _, ok := AsValidation(fmt.Errorf("plain")); ok {
		t.Error("AsValidation matched a plain error")
	}
}
