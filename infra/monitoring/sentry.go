// Package monitoring provides the Sentry-backed error monitor.
package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/fleetguard/fleetguard/config"
	coremon "github.com/fleetguard/fleetguard/core/monitoring"
)

// recoverFlushTimeout bounds the flush performed while a panic is in
// flight. Recover re-raises afterwards, so this is the last chance to get
// the event out.
const recoverFlushTimeout = 2 * time.Second

// NewSentryMonitor builds a Monitor from the sentry section of the config.
// An empty DSN yields a NopMonitor so callers never have to branch.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if !cfg.Enabled() {
		return coremon.NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, err
	}
	return &sentryMonitor{}, nil
}

type sentryMonitor struct{}

// CaptureException reports err with the given tags. Callers tag events
// with at least a module name so alerts can be routed per subsystem.
func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

// Recover reports the in-flight panic and re-raises it. The process still
// crashes loudly; the event just gets flushed first.
func (s *sentryMonitor) Recover() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(recoverFlushTimeout)
		panic(r)
	}
}

func (s *sentryMonitor) Flush(timeout time.Duration) { sentry.Flush(timeout) }
