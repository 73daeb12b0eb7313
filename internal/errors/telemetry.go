// Package errors - telemetry integration (optional)
package errors

import "sync/atomic"

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// reporterHolder lets atomic.Pointer hold an interface value
type reporterHolder struct {
	reporter TelemetryReporter
}

var globalTelemetryReporter atomic.Pointer[reporterHolder]

// SetTelemetryReporter sets the global telemetry reporter. nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		globalTelemetryReporter.Store(nil)
		return
	}
	globalTelemetryReporter.Store(&reporterHolder{reporter: reporter})
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	if h := globalTelemetryReporter.Load(); h != nil {
		return h.reporter
	}
	return nil
}

// reportToTelemetry reports an error to the configured telemetry system
func reportToTelemetry(ee *EnhancedError) {
	reporter := GetTelemetryReporter()
	if reporter == nil || !reporter.IsEnabled() || !isReportable(ee.Category) {
		return
	}
	reporter.ReportError(ee)
}

// isReportable limits telemetry to failures of the host rather than bad input files
func isReportable(category ErrorCategory) bool {
	switch category {
	case CategoryCodec, CategorySystem, CategoryWorker, CategoryJobQueue:
		return true
	default:
		return false
	}
}
