package encoder

import (
	"sync"

	"github.com/tphakala/wavenc/internal/codec"
	"github.com/tphakala/wavenc/internal/logger"
	"github.com/tphakala/wavenc/internal/queue"
)

// Pool owns a fixed set of workers and the two queues connecting them to
// the caller
type Pool struct {
	size    int
	factory codec.Factory
	opts    options
	log     logger.Logger

	mu        sync.Mutex
	running   bool
	tasks     *queue.Queue[*Task]
	notes     *queue.Queue[Notification]
	workers   []*Worker
	wg        sync.WaitGroup
	abandoned []*Task
}

// NewPool creates a stopped pool of size workers. Each worker gets its own
// codec from factory.
func NewPool(size int, factory codec.Factory, opts ...Option) *Pool {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Pool{
		size:    size,
		factory: factory,
		opts:    o,
		log:     logger.Global().Module("encoder"),
	}
}

// Start creates both queues and starts every worker. Startup is
// all-or-nothing: if a worker cannot be created the workers already
// running are stopped and the error is returned.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return poolError(ErrPoolRunning)
	}
	if p.size < 1 {
		return poolError(ErrInvalidPoolSize, "size", p.size)
	}

	p.tasks = queue.New[*Task]()
	p.notes = queue.New[Notification]()
	p.workers = make([]*Worker, 0, p.size)
	p.abandoned = nil

	for i := range p.size {
		w, err := newWorker(i, p.factory, p.tasks, p.notes, p.opts)
		if err != nil {
			p.log.Error("worker failed to start, stopping pool",
				logger.Int("worker_id", i),
				logger.Error(err))
			closeAndCancel(p.tasks, p.workers)
			p.wg.Wait()
			p.workers = nil
			return err
		}
		p.workers = append(p.workers, w)
		p.wg.Go(w.run)
	}

	p.running = true
	p.log.Info("worker pool started", logger.Int("workers", p.size))
	return nil
}

// Submit enqueues a task without blocking. It returns false when the pool
// is not running.
func (p *Pool) Submit(t *Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return false
	}
	return p.tasks.Send(t)
}

// Stop closes the task queue, cancels every worker and waits for all of
// them to exit. Tasks still queued are never started; they are available
// from Abandoned afterwards. Calls after the first return immediately.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	tasks := p.tasks
	closeAndCancel(tasks, p.workers)
	p.mu.Unlock()

	p.wg.Wait()

	pending, _ := tasks.ReceiveAll(false)
	p.mu.Lock()
	p.abandoned = append(p.abandoned, pending...)
	p.mu.Unlock()

	p.log.Info("worker pool stopped", logger.Int("abandoned_tasks", len(pending)))
}

// closeAndCancel stops idle workers from taking new tasks and interrupts busy ones
func closeAndCancel(tasks *queue.Queue[*Task], workers []*Worker) {
	tasks.Close()
	for _, w := range workers {
		w.token.RequestCancel()
	}
}

// DrainNotifications returns every notification received since the last
// call, split by phase and in arrival order. It never blocks.
func (p *Pool) DrainNotifications() (started, finished []Notification) {
	p.mu.Lock()
	notes := p.notes
	p.mu.Unlock()
	if notes == nil {
		return nil, nil
	}

	items, _ := notes.ReceiveAll(false)
	for _, n := range items {
		switch n.Phase {
		case PhaseStarted:
			started = append(started, n)
		case PhaseFinished:
			finished = append(finished, n)
		}
	}
	return started, finished
}

// Abandoned returns the tasks that were queued when the pool stopped
func (p *Pool) Abandoned() []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Task(nil), p.abandoned...)
}

// Size returns the configured number of workers
func (p *Pool) Size() int { return p.size }

// Running reports whether the pool accepts tasks
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// QueueLen returns the number of tasks waiting for a worker
func (p *Pool) QueueLen() int {
	p.mu.Lock()
	tasks := p.tasks
	p.mu.Unlock()
	if tasks == nil {
		return 0
	}
	return tasks.Len()
}
