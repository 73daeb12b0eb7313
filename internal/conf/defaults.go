package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("encoder.threads", 0)
	viper.SetDefault("encoder.bitrate", 0)
	viper.SetDefault("encoder.pollinterval", 150*time.Millisecond)
	viper.SetDefault("encoder.poller", "signal")
	viper.SetDefault("encoder.overwrite", false)
	viper.SetDefault("encoder.ffmpegpath", "")
	viper.SetDefault("encoder.canceleveryframes", 10)

	viper.SetDefault("input.path", "")
	viper.SetDefault("input.recursive", false)
	viper.SetDefault("input.extensions", []string{".wav", ".wave"})

	viper.SetDefault("output.path", "")
	viper.SetDefault("output.extension", ".mp3")
	viper.SetDefault("output.report", "")
	viper.SetDefault("output.checkspace", true)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "localhost:9090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
