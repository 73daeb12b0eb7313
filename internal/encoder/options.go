package encoder

// DefaultCancelCheckInterval is how many decode iterations pass between
// cancellation checks
const DefaultCancelCheckInterval = 10

// Recorder receives per-task measurements. Implementations must be safe
// for concurrent use by all workers.
type Recorder interface {
	TaskStarted()
	TaskFinished(result string, seconds float64, bytesWritten int64)
}

type noopRecorder struct{}

func (noopRecorder) TaskStarted() {}
func (noopRecorder) TaskFinished(string, float64, int64) {}

type options struct {
	bitrateKbps int
	cancelEvery int
	recorder    Recorder
	createDirs  bool
}

// Option configures a Pool
type Option func(*options)

// WithBitrate sets the bitrate hint in kbps. Zero derives it from each source.
func WithBitrate(kbps int) Option {
	return func(o *options) {
		o.bitrateKbps = kbps
	}
}

// WithCancelCheckInterval sets how many decode iterations pass between
// cancellation checks. Values below 1 select the default.
func WithCancelCheckInterval(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cancelEvery = n
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithCreateDirs makes workers create missing destination directories
func WithCreateDirs(enabled bool) Option {
	return func(o *options) {
		o.createDirs = enabled
	}
}

func defaultOptions() options {
	return options{
		cancelEvery: DefaultCancelCheckInterval,
		recorder:    noopRecorder{},
		createDirs:  true,
	}
}
