// Package cmd wires the wavenc command line
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/wavenc/cmd/encode"
	"github.com/tphakala/wavenc/cmd/probe"
	"github.com/tphakala/wavenc/cmd/version"
	"github.com/tphakala/wavenc/internal/buildinfo"
	"github.com/tphakala/wavenc/internal/conf"
	"github.com/tphakala/wavenc/internal/logger"
	"github.com/tphakala/wavenc/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(build *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "wavenc",
		Short:         "Batch WAV to MP3 encoder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}

	versionCmd := version.Command(build)
	rootCmd.AddCommand(
		encode.Command(),
		probe.Command(),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(configFile, build)
	}

	return rootCmd
}

// initialize loads settings and sets up logging and telemetry before any
// subcommand runs
func initialize(configFile string, build *buildinfo.Context) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}

	central, err := logger.NewCentralLogger(loggingConfig(settings))
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger.SetGlobal(central)

	if used := conf.ConfigFileUsed(); used != "" {
		central.Module("main").Debug("loaded config file", logger.String("path", used))
	}

	return telemetry.Init(settings, build.GetVersion())
}

func loggingConfig(settings *conf.Settings) *logger.LoggingConfig {
	level := settings.Logging.Level
	if settings.Debug {
		level = "debug"
	}

	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Console:      &logger.ConsoleOutput{Enabled: true, Level: level},
	}
	if settings.Logging.File != "" {
		cfg.FileOutput = &logger.FileOutput{
			Enabled: true,
			Path:    settings.Logging.File,
			Level:   level,
		}
	}
	return cfg
}
