// Package monitoring reports operational failures to an external error
// tracker. Core packages call the package-level helpers; the concrete
// backend is installed once at startup via Init and defaults to a no-op.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Monitor receives errors and panics from the running service.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor discards everything. It is the default until Init is called.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var current atomic.Value

func init() {
	current.Store(Monitor(NopMonitor{}))
}

// Init installs the monitor implementation used by the package helpers.
// Passing nil keeps the current monitor.
func Init(m Monitor) {
	if m != nil {
		current.Store(m)
	}
}

// CaptureException forwards err to the installed monitor. Nil errors are
// dropped here so call sites do not need to guard.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	current.Load().(Monitor).CaptureException(err, tags)
}

// Recover reports a panic in the calling goroutine. Use with defer.
func Recover() {
	current.Load().(Monitor).Recover()
}

// Flush blocks until buffered events are delivered or the timeout expires.
func Flush(d time.Duration) {
	current.Load().(Monitor).Flush(d)
}
