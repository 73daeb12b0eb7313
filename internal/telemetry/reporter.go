package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/tphakala/wavenc/internal/errors"
)

// SentryReporter implements errors.TelemetryReporter on top of a Sentry hub
type SentryReporter struct {
	hub     *sentry.Hub
	enabled bool
}

// NewSentryReporter creates a reporter that sends through hub
func NewSentryReporter(hub *sentry.Hub, enabled bool) *SentryReporter {
	return &SentryReporter{hub: hub, enabled: enabled}
}

// IsEnabled reports whether events will be sent
func (r *SentryReporter) IsEnabled() bool {
	return r.enabled && r.hub != nil && r.hub.Client() != nil
}

// ReportError captures ee once, tagged with its component and category
func (r *SentryReporter) ReportError(ee *errors.EnhancedError) {
	if ee == nil || ee.IsReported() || !r.IsEnabled() {
		return
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		scope.SetLevel(sentry.LevelError)
		for k, v := range ee.GetContext() {
			scope.SetExtra(k, v)
		}
		scope.SetFingerprint([]string{ee.GetComponent(), ee.GetCategory(), errorType(ee)})
		r.hub.CaptureException(ee.Err)
	})
	ee.MarkReported()
}

// Flush waits up to timeout for pending events
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	if r.hub == nil {
		return true
	}
	return r.hub.Flush(timeout)
}

// errorType names the wrapped error's kind without its message
func errorType(ee *errors.EnhancedError) string {
	if code, ok := ee.GetContext()["code"]; ok {
		return fmt.Sprint(code)
	}
	return ee.GetCategory()
}
