// Package conf loads wavenc settings from defaults, an optional config.yaml,
// WAVENC_ environment variables and command line flags, in increasing
// order of precedence.
package conf

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/wavenc/internal/errors"
)

// EnvPrefix prefixes environment overrides, e.g. WAVENC_ENCODER_THREADS
const EnvPrefix = "WAVENC"

// Settings contains all configuration options
type Settings struct {
	Debug bool // enable debug logging

	Encoder EncoderSettings
	Input   InputSettings
	Output  OutputSettings
	Logging LoggingSettings
	Metrics MetricsSettings
	Sentry  SentrySettings
}

// EncoderSettings controls the worker pool and codec
type EncoderSettings struct {
	Threads           int           // worker count, 0 selects the detected core count
	Bitrate           int           // kbps, 0 derives it from each source
	PollInterval      time.Duration // orchestrator reconciliation cadence
	Poller            string        // "signal" or "sleep"
	Overwrite         bool          // replace existing destinations
	FfmpegPath        string        // ffmpeg binary, searched in PATH when empty
	CancelEveryFrames int           // decode iterations between cancellation checks
}

// InputSettings controls source discovery
type InputSettings struct {
	Path       string   // default input when no arguments are given
	Recursive  bool     // descend into subdirectories
	Extensions []string // source extensions picked up from directories
}

// OutputSettings controls destinations and the run report
type OutputSettings struct {
	Path       string // output directory, empty writes next to each source
	Extension  string // destination extension
	Report     string // YAML summary path, empty disables the report
	CheckSpace bool   // refuse to start when the output filesystem looks too small
}

// LoggingSettings controls log output
type LoggingSettings struct {
	Level string // debug, info, warn or error
	File  string // JSON log file, empty disables file logging
}

// MetricsSettings controls the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool
	Listen  string // host:port for /metrics
}

// SentrySettings controls error telemetry
type SentrySettings struct {
	Enabled bool
	DSN     string
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the config file, environment and bound flags into a
// validated Settings. configFile overrides the config search path.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, configError(err, "unmarshal")
	}
	settings.normalize()

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// GetSettings returns the settings of the last successful Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the config file viper read, if any
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// initViper registers defaults and environment binding and reads the
// config file. A missing config file is not an error.
func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range DefaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return configError(err, "read config")
	}
	return nil
}

// DefaultConfigPaths lists the directories searched for config.yaml
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "wavenc"))
	}
	return append(paths, "/etc/wavenc")
}

// normalize canonicalizes values that have more than one accepted spelling
func (s *Settings) normalize() {
	s.Encoder.Poller = strings.ToLower(strings.TrimSpace(s.Encoder.Poller))
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))

	exts := s.Input.Extensions[:0]
	for _, e := range s.Input.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	s.Input.Extensions = exts

	if s.Output.Extension != "" && !strings.HasPrefix(s.Output.Extension, ".") {
		s.Output.Extension = "." + s.Output.Extension
	}
}

func configError(err error, operation string) error {
	return errors.New(err).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("operation", operation).
		Build()
}
