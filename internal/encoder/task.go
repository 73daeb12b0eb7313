// Package encoder runs WAVE to MP3 encodes on a fixed pool of worker
// goroutines. Tasks flow to workers through a shared queue and workers
// report lifecycle notifications back through a second queue; the two
// queues are the only state shared between the pool and its caller.
package encoder

import (
	"fmt"
	"time"

	"github.com/tphakala/wavenc/internal/wave"
)

// Phase is the lifecycle stage of a task. Phases only move forward.
type Phase int

const (
	PhaseQueued Phase = iota
	PhaseStarted
	PhaseFinished
)

// String returns a human-readable representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseQueued:
		return "queued"
	case PhaseStarted:
		return "started"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Result is the outcome of an encode, set once when the task finishes
type Result int

const (
	ResultSuccess Result = iota
	ResultBadSource
	ResultBadDestination
	ResultSystemError
)

// String returns the result name used in logs, metrics labels and reports
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultBadSource:
		return "bad_source"
	case ResultBadDestination:
		return "bad_destination"
	case ResultSystemError:
		return "system_error"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// MarshalText renders the result by name, including as a map key
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Task is one source to destination conversion. The orchestrator owns it
// and drives its phase; the worker that processes it writes the outcome
// fields before sending the Finished notification, and the orchestrator
// reads them only after receiving that notification.
type Task struct {
	ID              int
	SourcePath      string
	DestinationPath string
	Info            wave.Info

	phase        Phase
	result       Result
	message      string
	bytesWritten int64
	elapsed      time.Duration
	cancelled    bool
}

// NewTask creates a queued task
func NewTask(id int, sourcePath, destinationPath string, info wave.Info) *Task {
	return &Task{
		ID:              id,
		SourcePath:      sourcePath,
		DestinationPath: destinationPath,
		Info:            info,
	}
}

// Advance moves the task to the next phase. It refuses regressions and
// skipped phases and reports whether the transition happened.
func (t *Task) Advance(to Phase) bool {
	if to != t.phase+1 {
		return false
	}
	t.phase = to
	return true
}

// Phase returns the current lifecycle phase
func (t *Task) Phase() Phase { return t.phase }

// Result returns the encode outcome; meaningful once the task is finished
func (t *Task) Result() Result { return t.result }

// Message returns the failure description, or "cancelled" for interrupted encodes
func (t *Task) Message() string { return t.message }

// BytesWritten returns how many encoded bytes reached the destination
func (t *Task) BytesWritten() int64 { return t.bytesWritten }

// Elapsed returns the wall time the worker spent on the task
func (t *Task) Elapsed() time.Duration { return t.elapsed }

// Cancelled reports whether the encode stopped at a cancellation checkpoint
func (t *Task) Cancelled() bool { return t.cancelled }

func (t *Task) finish(o outcome) {
	t.result = o.result
	t.message = o.message
	t.bytesWritten = o.bytesWritten
	t.elapsed = o.elapsed
	t.cancelled = o.cancelled
}

// Notification reports a task lifecycle transition from a worker. It is
// sent by value, so the receiver owns its copy.
type Notification struct {
	TaskID  int
	Phase   Phase
	Result  Result
	Message string
}
