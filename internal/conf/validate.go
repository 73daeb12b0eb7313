package conf

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tphakala/wavenc/internal/errors"
)

const (
	// MaxThreads caps the worker pool
	MaxThreads = 64

	minPollInterval = 10 * time.Millisecond
	maxPollInterval = 10 * time.Second
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks every section and reports all problems at once
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateEncoderSettings(&settings.Encoder)...)
	ve.Errors = append(ve.Errors, validateInputSettings(&settings.Input)...)
	ve.Errors = append(ve.Errors, validateOutputSettings(&settings.Output)...)
	ve.Errors = append(ve.Errors, validateLoggingSettings(&settings.Logging)...)
	ve.Errors = append(ve.Errors, validateMetricsSettings(&settings.Metrics)...)
	ve.Errors = append(ve.Errors, validateSentrySettings(&settings.Sentry)...)

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("error_count", len(ve.Errors)).
			Build()
	}
	return nil
}

func validateEncoderSettings(s *EncoderSettings) []string {
	var errs []string
	if s.Threads < 0 || s.Threads > MaxThreads {
		errs = append(errs, fmt.Sprintf("encoder.threads must be between 0 and %d, got %d", MaxThreads, s.Threads))
	}
	if s.Bitrate != 0 && (s.Bitrate < 32 || s.Bitrate > 320) {
		errs = append(errs, fmt.Sprintf("encoder.bitrate must be 0 or between 32 and 320 kbps, got %d", s.Bitrate))
	}
	if s.PollInterval < minPollInterval || s.PollInterval > maxPollInterval {
		errs = append(errs, fmt.Sprintf("encoder.pollinterval must be between %s and %s, got %s", minPollInterval, maxPollInterval, s.PollInterval))
	}
	if s.Poller != "signal" && s.Poller != "sleep" {
		errs = append(errs, fmt.Sprintf("encoder.poller must be signal or sleep, got %q", s.Poller))
	}
	if s.CancelEveryFrames < 1 {
		errs = append(errs, fmt.Sprintf("encoder.canceleveryframes must be at least 1, got %d", s.CancelEveryFrames))
	}
	return errs
}

func validateInputSettings(s *InputSettings) []string {
	if len(s.Extensions) == 0 {
		return []string{"input.extensions must list at least one extension"}
	}
	return nil
}

func validateOutputSettings(s *OutputSettings) []string {
	var errs []string
	if len(s.Extension) < 2 {
		errs = append(errs, fmt.Sprintf("output.extension must be a file extension, got %q", s.Extension))
	}
	if s.Report != "" && !strings.HasSuffix(s.Report, ".yaml") && !strings.HasSuffix(s.Report, ".yml") {
		errs = append(errs, fmt.Sprintf("output.report must be a .yaml file, got %q", s.Report))
	}
	return errs
}

func validateLoggingSettings(s *LoggingSettings) []string {
	switch s.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return []string{fmt.Sprintf("logging.level must be debug, info, warn or error, got %q", s.Level)}
	}
}

func validateMetricsSettings(s *MetricsSettings) []string {
	if !s.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return []string{fmt.Sprintf("metrics.listen must be host:port, got %q", s.Listen)}
	}
	return nil
}

func validateSentrySettings(s *SentrySettings) []string {
	if s.Enabled && s.DSN == "" {
		return []string{"sentry.dsn is required when sentry is enabled"}
	}
	return nil
}
