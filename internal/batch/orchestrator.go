// Package batch turns a list of WAVE sources into encoder tasks, drives
// them through the worker pool and decides when the run is over.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/wavenc/internal/encoder"
	"github.com/tphakala/wavenc/internal/errors"
	"github.com/tphakala/wavenc/internal/logger"
	"github.com/tphakala/wavenc/internal/wave"
)

const (
	// DefaultPollInterval bounds how long the orchestrator sleeps between reconciliations
	DefaultPollInterval = 150 * time.Millisecond

	// DefaultProgressEvery is the number of reconciliations between progress log lines
	DefaultProgressEvery = 20
)

// Pool is the part of encoder.Pool the orchestrator drives
type Pool interface {
	Start() error
	Submit(t *encoder.Task) bool
	Stop()
	DrainNotifications() (started, finished []encoder.Notification)
	Abandoned() []*encoder.Task
	QueueLen() int
}

// Recorder receives orchestration gauges and counters
type Recorder interface {
	SetQueueDepth(n int)
	SetInProgress(n int)
	RecordRejected(reason string)
}

type noopRecorder struct{}

func (noopRecorder) SetQueueDepth(int) {}
func (noopRecorder) SetInProgress(int) {}
func (noopRecorder) RecordRejected(string) {}

// Rejection is a source refused before submission
type Rejection struct {
	Path   string
	Reason string
}

// Orchestrator owns every task of a run. It is used from a single goroutine.
type Orchestrator struct {
	pool          Pool
	poller        Poller
	interval      time.Duration
	progressEvery int
	recorder      Recorder
	log           logger.Logger

	all        []*encoder.Task
	byID       map[int]*encoder.Task
	inProgress map[int]*encoder.Task
	completed  []*encoder.Task
	rejected   []Rejection
	skipped    []Skipped
	results    map[encoder.Result]int

	reconciles int
	started    time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPollInterval sets the reconciliation cadence
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithProgressEvery sets how many reconciliations pass between progress
// log lines. Zero disables progress logging.
func WithProgressEvery(n int) Option {
	return func(o *Orchestrator) {
		o.progressEvery = n
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewOrchestrator creates an orchestrator for pool that blocks on poller
func NewOrchestrator(pool Pool, poller Poller, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pool:          pool,
		poller:        poller,
		interval:      DefaultPollInterval,
		progressEvery: DefaultProgressEvery,
		recorder:      noopRecorder{},
		log:           log(),
		byID:          make(map[int]*encoder.Task),
		inProgress:    make(map[int]*encoder.Task),
		results:       make(map[encoder.Result]int),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Add validates each job's source header and creates a task for it.
// Sources that cannot be decoded are rejected here and never reach the
// pool. It returns the number of accepted jobs.
func (o *Orchestrator) Add(jobs ...Job) int {
	accepted := 0
	for _, job := range jobs {
		info, err := wave.Probe(job.SourcePath)
		if err != nil {
			o.rejected = append(o.rejected, Rejection{Path: job.SourcePath, Reason: err.Error()})
			o.recorder.RecordRejected(rejectReason(err))
			o.log.Warn("source rejected",
				logger.String("path", job.SourcePath),
				logger.Error(err))
			continue
		}

		task := encoder.NewTask(len(o.all)+1, job.SourcePath, job.DestinationPath, info)
		o.all = append(o.all, task)
		o.byID[task.ID] = task
		accepted++
	}
	return accepted
}

// Skip records inputs left out before validation so they show up in the summary
func (o *Orchestrator) Skip(skipped ...Skipped) {
	o.skipped = append(o.skipped, skipped...)
}

// Tasks returns the accepted tasks in submission order
func (o *Orchestrator) Tasks() []*encoder.Task {
	return o.all
}

// Run starts the pool, submits every task and reconciles notifications
// until all tasks finished or termination was requested. A pool that
// cannot start is fatal and nothing is submitted.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	o.started = time.Now()
	runID := uuid.NewString()
	o.log = o.log.With(logger.String("run_id", runID))

	if len(o.all) == 0 {
		o.log.Info("nothing to encode", logger.Int("rejected", len(o.rejected)))
		return o.summary(runID, false), nil
	}

	if err := o.pool.Start(); err != nil {
		return nil, errors.New(err).
			Component("batch").
			Category(errors.CategoryWorker).
			Context("operation", "start pool").
			Build()
	}

	for _, t := range o.all {
		if !o.pool.Submit(t) {
			o.pool.Stop()
			return nil, errors.Newf("pool refused task %d", t.ID).
				Component("batch").
				Category(errors.CategoryJobQueue).
				Context("source", t.SourcePath).
				Build()
		}
	}
	o.log.Info("tasks submitted",
		logger.Int("submitted", len(o.all)),
		logger.Int("rejected", len(o.rejected)))

	interrupted := false
	for len(o.completed) < len(o.all) {
		if ctx.Err() != nil || o.poller.Wait(o.interval) == WaitSignaled {
			o.log.Warn("shutdown requested, stopping workers",
				logger.Int("completed", len(o.completed)),
				logger.Int("in_progress", len(o.inProgress)))
			interrupted = true
			o.pool.Stop()
			o.reconcile()
			break
		}
		o.reconcile()
	}

	o.pool.Stop()
	return o.summary(runID, interrupted), nil
}

// reconcile applies every notification received since the last call
func (o *Orchestrator) reconcile() {
	started, finished := o.pool.DrainNotifications()

	finishedNow := make(map[int]bool, len(finished))
	for _, n := range finished {
		task, ok := o.byID[n.TaskID]
		if !ok {
			o.log.Warn("notification for unknown task", logger.Int("task_id", n.TaskID))
			continue
		}
		finishedNow[n.TaskID] = true

		// Started and Finished can arrive in the same batch
		task.Advance(encoder.PhaseStarted)
		if !task.Advance(encoder.PhaseFinished) {
			o.log.Warn("duplicate finished notification", logger.Int("task_id", n.TaskID))
			continue
		}
		delete(o.inProgress, n.TaskID)
		o.completed = append(o.completed, task)
		o.results[n.Result]++
		o.logFinished(task, n)
	}

	for _, n := range started {
		if finishedNow[n.TaskID] {
			continue
		}
		if task, ok := o.byID[n.TaskID]; ok && task.Advance(encoder.PhaseStarted) {
			o.inProgress[n.TaskID] = task
		}
	}

	o.recorder.SetQueueDepth(o.pool.QueueLen())
	o.recorder.SetInProgress(len(o.inProgress))

	o.reconciles++
	if o.progressEvery > 0 && o.reconciles%o.progressEvery == 0 {
		o.logProgress()
	}
}

func (o *Orchestrator) logFinished(task *encoder.Task, n encoder.Notification) {
	fields := []logger.Field{
		logger.Int("task_id", task.ID),
		logger.String("source", task.SourcePath),
		logger.String("result", n.Result.String()),
		logger.Duration("elapsed", task.Elapsed()),
	}
	if n.Result != encoder.ResultSuccess {
		o.log.Error("task failed", append(fields, logger.String("message", n.Message))...)
		return
	}
	if task.Cancelled() {
		o.log.Warn("task interrupted", fields...)
		return
	}
	o.log.Info("task encoded", append(fields, logger.String("destination", task.DestinationPath))...)
}

func (o *Orchestrator) logProgress() {
	done := len(o.completed)
	fields := []logger.Field{
		logger.Int("completed", done),
		logger.Int("total", len(o.all)),
		logger.Int("in_progress", len(o.inProgress)),
		logger.Float64("percent", 100*float64(done)/float64(len(o.all))),
	}
	if done > 0 {
		elapsed := time.Since(o.started)
		eta := elapsed / time.Duration(done) * time.Duration(len(o.all)-done)
		fields = append(fields, logger.Duration("eta", eta))
	}
	o.log.Info("encoding progress", fields...)
}

func rejectReason(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}
