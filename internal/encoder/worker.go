package encoder

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/tphakala/wavenc/internal/codec"
	"github.com/tphakala/wavenc/internal/errors"
	"github.com/tphakala/wavenc/internal/logger"
	"github.com/tphakala/wavenc/internal/queue"
	"github.com/tphakala/wavenc/internal/wave"
)

// WorkerState is the lifecycle stage of a worker goroutine
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerStopped
)

// String returns a human-readable representation of the state
func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const messageCancelled = "cancelled"

// outcome is what a worker learned about one task
type outcome struct {
	result       Result
	message      string
	bytesWritten int64
	elapsed      time.Duration
	cancelled    bool
}

// Worker processes tasks one at a time until the task queue closes. All of
// its buffers are private and sized once from the codec limits.
type Worker struct {
	id    int
	tasks *queue.Queue[*Task]
	notes *queue.Queue[Notification]
	codec codec.Codec
	token CancelToken
	opts  options
	state atomic.Int32
	log   logger.Logger

	frameSize int
	pcm       []int32 // interleaved block; right channel is split into its upper half
	left      []int32
	out       []byte
}

func newWorker(id int, factory codec.Factory, tasks *queue.Queue[*Task], notes *queue.Queue[Notification], opts options) (*Worker, error) {
	c := factory()
	if c == nil {
		return nil, poolError(ErrNoCodec, "worker_id", id)
	}

	frameSize, maxOut := c.FrameSize(), c.MaxOutputSize()
	if frameSize <= 0 || maxOut <= 0 {
		_ = c.Close()
		return nil, poolError(ErrCodecLimits,
			"worker_id", id,
			"frame_size", frameSize,
			"max_output_size", maxOut)
	}

	return &Worker{
		id:        id,
		tasks:     tasks,
		notes:     notes,
		codec:     c,
		opts:      opts,
		log:       logger.Global().Module("encoder").With(logger.Int("worker_id", id)),
		frameSize: frameSize,
		pcm:       make([]int32, frameSize*2),
		left:      make([]int32, frameSize),
		out:       make([]byte, maxOut),
	}, nil
}

// ID returns the worker index within its pool
func (w *Worker) ID() int { return w.id }

// State returns the current worker state
func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

// run is the worker goroutine body
func (w *Worker) run() {
	defer func() {
		w.state.Store(int32(WorkerStopped))
		if err := w.codec.Close(); err != nil {
			w.log.Warn("codec close failed", logger.Error(err))
		}
		w.log.Debug("worker stopped")
	}()

	for {
		task, status := w.tasks.Receive(true)
		if status == queue.StatusClosed {
			return
		}
		if status != queue.StatusOK {
			continue
		}

		w.state.Store(int32(WorkerRunning))
		w.notes.Send(Notification{TaskID: task.ID, Phase: PhaseStarted, Result: ResultSuccess})
		w.opts.recorder.TaskStarted()

		o := w.process(task)
		task.finish(o)
		w.opts.recorder.TaskFinished(o.result.String(), o.elapsed.Seconds(), o.bytesWritten)

		w.log.Debug("task finished",
			logger.Int("task_id", task.ID),
			logger.String("result", o.result.String()),
			logger.Int64("bytes_written", o.bytesWritten),
			logger.Duration("elapsed", o.elapsed))

		w.notes.Send(Notification{TaskID: task.ID, Phase: PhaseFinished, Result: o.result, Message: o.message})
		w.state.Store(int32(WorkerIdle))
	}
}

// process runs decode, encode and write for one task
func (w *Worker) process(task *Task) (o outcome) {
	start := time.Now()
	defer func() { o.elapsed = time.Since(start) }()

	dec, err := wave.Open(task.SourcePath)
	if err != nil {
		return failed(ResultBadSource, err)
	}
	defer dec.Close()
	info := dec.Info()

	dst, err := w.createDestination(task.DestinationPath)
	if err != nil {
		return failed(ResultBadDestination, err)
	}
	defer func() {
		// The destination is closed on every path; a failed close only
		// changes the result of an otherwise successful task.
		if err := dst.Close(); err != nil && o.result == ResultSuccess && !o.cancelled {
			o = failedAfter(o, ResultBadDestination, destinationError(err, task.DestinationPath, "close"))
		}
	}()

	params := codec.Params{
		Channels:     info.Channels,
		SampleRate:   info.SampleRate,
		BitrateKbps:  codec.BitrateFor(w.opts.bitrateKbps, info.ByteRate),
		TotalSamples: info.SampleCount,
	}
	if err := w.codec.Init(params); err != nil {
		return failed(ResultSystemError, err)
	}
	defer w.codec.Close()

	channels := info.Channels
	block := w.pcm[:w.frameSize*channels]

	for i := 0; ; i++ {
		if i%w.opts.cancelEvery == 0 && w.token.Cancelled() {
			w.log.Info("encode interrupted by shutdown",
				logger.Int("task_id", task.ID),
				logger.Int64("bytes_written", o.bytesWritten))
			o.cancelled = true
			o.message = messageCancelled
			return o
		}

		n, err := dec.UnpackSamples(block)
		if err != nil {
			return failedAfter(o, ResultBadSource, err)
		}
		if n == 0 {
			break
		}

		frames := n / channels
		left, right := block[:frames], []int32(nil)
		if channels == 2 {
			left, right = w.left[:frames], block[frames:2*frames]
			wave.Deinterleave(block, left, right, frames)
		}

		encoded, err := w.codec.Encode(left, right, frames, w.out)
		if err != nil {
			return failedAfter(o, ResultSystemError, err)
		}
		if err := w.write(dst, encoded, &o, task.DestinationPath); err != nil {
			return failedAfter(o, ResultBadDestination, err)
		}
	}

	for {
		encoded, err := w.codec.Flush(w.out)
		if err != nil {
			return failedAfter(o, ResultSystemError, err)
		}
		if encoded == 0 {
			return o
		}
		if err := w.write(dst, encoded, &o, task.DestinationPath); err != nil {
			return failedAfter(o, ResultBadDestination, err)
		}
	}
}

func (w *Worker) createDestination(path string) (*os.File, error) {
	if w.opts.createDirs {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, destinationError(err, path, "mkdir")
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, destinationError(err, path, "create")
	}
	return f, nil
}

func (w *Worker) write(dst io.Writer, n int, o *outcome, path string) error {
	if n <= 0 {
		return nil
	}
	written, err := dst.Write(w.out[:n])
	o.bytesWritten += int64(written)
	if err == nil && written < n {
		err = io.ErrShortWrite
	}
	if err != nil {
		return destinationError(err, path, "write")
	}
	return nil
}

func destinationError(err error, path, operation string) error {
	return errors.New(err).
		Component("encoder").
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		Context("destination", path).
		Build()
}

func failed(result Result, err error) outcome {
	return outcome{result: result, message: err.Error()}
}

// failedAfter keeps the byte count of a partially written task
func failedAfter(o outcome, result Result, err error) outcome {
	o.result = result
	o.message = err.Error()
	return o
}
