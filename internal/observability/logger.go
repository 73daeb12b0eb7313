package observability

import "github.com/tphakala/wavenc/internal/logger"

func log() logger.Logger {
	return logger.Global().Module("metrics")
}
