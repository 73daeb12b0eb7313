package encoder

import "github.com/tphakala/wavenc/internal/errors"

var (
	ErrPoolRunning     = errors.NewStd("worker pool already running")
	ErrInvalidPoolSize = errors.NewStd("worker pool size must be at least 1")
	ErrNoCodec         = errors.NewStd("codec factory returned no codec")
	ErrCodecLimits     = errors.NewStd("codec reported invalid frame or output size")
)

func poolError(err error, ctx ...any) error {
	b := errors.New(err).
		Component("encoder").
		Category(errors.CategoryWorker)
	for i := 0; i+1 < len(ctx); i += 2 {
		if key, ok := ctx[i].(string); ok {
			b = b.Context(key, ctx[i+1])
		}
	}
	return b.Build()
}
