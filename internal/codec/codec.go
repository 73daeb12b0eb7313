// Package codec defines the MP3 encoder contract used by the worker pool and
// provides an implementation backed by an FFmpeg child process.
package codec

const (
	// MinBitrateKbps and MaxBitrateKbps bound MPEG-1 Layer III bitrates
	MinBitrateKbps = 32
	MaxBitrateKbps = 320

	// DefaultFrameSize is the number of samples per channel in one MPEG-1 Layer III frame
	DefaultFrameSize = 1152
)

// Params describes the PCM stream handed to a codec
type Params struct {
	Channels     int
	SampleRate   int
	BitrateKbps  int
	TotalSamples int64 // samples per channel, zero if unknown
}

// Codec encodes left-justified int32 PCM into MP3 bytes. A codec instance
// is owned by one worker and used for one stream at a time: Init, then any
// number of Encode calls, then Flush until it returns 0, then Close.
type Codec interface {
	// Init prepares the codec for a new stream
	Init(p Params) error

	// FrameSize is the largest number of samples per channel Encode accepts in one call
	FrameSize() int

	// MaxOutputSize is the out buffer size that always fits one Encode or Flush result
	MaxOutputSize() int

	// Encode consumes frames samples from left and right (right is ignored
	// for mono streams) and writes encoded bytes to out
	Encode(left, right []int32, frames int, out []byte) (int, error)

	// Flush writes trailing encoded bytes to out. It returns 0 once the stream is complete.
	Flush(out []byte) (int, error)

	// Close releases the stream. It is safe to call after a failed Init.
	Close() error
}

// Factory creates a fresh codec for a worker
type Factory func() Codec

// BitrateFor picks the bitrate hint for a stream: the configured bitrate
// when set, otherwise the source byte rate converted to kbps. Both are
// clamped to the MP3 range.
func BitrateFor(configuredKbps, sourceByteRate int) int {
	kbps := configuredKbps
	if kbps <= 0 {
		kbps = sourceByteRate * 8 / 1000
	}
	return clampInt(kbps, MinBitrateKbps, MaxBitrateKbps)
}

// MaxOutputFor returns LAME's worst-case output size for frameSize samples
func MaxOutputFor(frameSize int) int {
	return frameSize*5/4 + 7200
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
