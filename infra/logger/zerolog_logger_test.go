package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZerologLoggerConsoleMode(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("ingest")
	assert.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"vehicle": "BUS12"})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerJSONMode(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	l := NewZerologLogger("api")
	assert.NotNil(t, l)
	l.Infof("structured output for %s", "BUS14")
	l.Debugw("fields", nil)
}

func TestNopLoggerIsSilent(t *testing.T) {
	var l Logger = NopLogger{}
	l.Debugf("dropped %d", 1)
	l.Debugw("dropped", map[string]any{"k": "v"})
	l.Infof("dropped")
	l.Warnf("dropped")
	l.Errorf("dropped")
}
