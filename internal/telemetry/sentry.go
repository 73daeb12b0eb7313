// Package telemetry reports host-side encoder failures to Sentry.
//
// Reporting is opt-in. Only errors the errors package classifies as
// reportable reach Sentry, and every event is stripped of host identifiers
// and file paths before it leaves the process.
package telemetry

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/tphakala/wavenc/internal/conf"
	"github.com/tphakala/wavenc/internal/errors"
	"github.com/tphakala/wavenc/internal/logger"
)

// FlushTimeout bounds how long Flush waits for queued events at exit
const FlushTimeout = 2 * time.Second

// allowedExtra lists the context keys that survive privacy filtering
var allowedExtra = map[string]bool{
	"operation":          true,
	"code":               true,
	"file_extension":     true,
	"file_size_category": true,
	"channels":           true,
	"sample_rate":        true,
	"bitrate_kbps":       true,
	"duration_ms":        true,
}

func log() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Init configures Sentry from settings and installs the reporter on the
// errors package. It is a no-op when telemetry is disabled.
func Init(settings *conf.Settings, version string) error {
	if !settings.Sentry.Enabled {
		log().Debug("sentry telemetry is disabled")
		errors.SetTelemetryReporter(nil)
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          fmt.Sprintf("wavenc@%s", version),
		Debug:            false,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":    "wavenc",
			"version": version,
		})
	})

	errors.SetTelemetryReporter(NewSentryReporter(sentry.CurrentHub(), true))
	log().Info("sentry telemetry initialized", logger.String("release", "wavenc@"+version))
	return nil
}

// Flush waits for queued events to be delivered
func Flush() {
	if r, ok := errors.GetTelemetryReporter().(*SentryReporter); ok {
		r.Flush(FlushTimeout)
	}
}

// applyPrivacyFilters removes host identity and anything that may carry a path
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	for k := range event.Extra {
		if !allowedExtra[k] {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	for i := range event.Exception {
		event.Exception[i].Value = scrubPaths(event.Exception[i].Value)
	}
	event.Message = scrubPaths(event.Message)
	return event
}

// scrubPaths replaces path-like words with a placeholder
func scrubPaths(s string) string {
	if !strings.ContainsAny(s, `/\`) {
		return s
	}
	fields := strings.Fields(s)
	for i, f := range fields {
		if strings.ContainsAny(f, `/\`) {
			fields[i] = "[path]"
		}
	}
	return strings.Join(fields, " ")
}
