package wave

import (
	"github.com/tphakala/wavenc/internal/errors"
)

// Sentinel errors, wrapped in *errors.EnhancedError when returned.
var (
	ErrNotRIFF             = errors.NewStd("missing RIFF container id")
	ErrNotWAVE             = errors.NewStd("missing WAVE form id")
	ErrMalformedFormat     = errors.NewStd("malformed fmt chunk")
	ErrNoFormatChunk       = errors.NewStd("data chunk precedes fmt chunk")
	ErrNoDataChunk         = errors.NewStd("no data chunk found")
	ErrUnsupportedFormat   = errors.NewStd("unsupported format tag, only integer PCM is supported")
	ErrUnsupportedChannels = errors.NewStd("unsupported channel count")
	ErrUnsupportedBitDepth = errors.NewStd("unsupported bit depth")
	ErrTruncated           = errors.NewStd("source ended before the declared data length")
	ErrInvalidDecoder      = errors.NewStd("decoder has no valid header")
	ErrDecoderClosed       = errors.NewStd("decoder is closed")
	ErrShortBuffer         = errors.NewStd("destination buffer smaller than one frame")
)

// formatError wraps a header validation failure
func formatError(err error, ctx ...any) error {
	b := errors.New(err).
		Component("wave").
		Category(errors.CategoryWaveFormat)
	for i := 0; i+1 < len(ctx); i += 2 {
		if key, ok := ctx[i].(string); ok {
			b = b.Context(key, ctx[i+1])
		}
	}
	return b.Build()
}

// readError wraps an I/O failure while reading the source. Only the file
// extension and a size bucket are recorded, never the path.
func readError(err error, operation, path string, size int64) error {
	return errors.New(err).
		Component("wave").
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		FileContext(path, size).
		Build()
}
