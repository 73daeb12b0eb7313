package batch

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tphakala/wavenc/internal/logger"
)

// WaitResult tells the orchestrator why its wait ended
type WaitResult int

const (
	WaitTimedOut WaitResult = iota
	WaitSignaled
)

// String returns a human-readable representation of the result
func (r WaitResult) String() string {
	if r == WaitSignaled {
		return "signaled"
	}
	return "timed-out"
}

// Poller is the single place the orchestrator blocks. Wait returns
// WaitSignaled once termination was requested, and WaitTimedOut when
// timeout passed without that. A signaled poller stays signaled.
type Poller interface {
	Wait(timeout time.Duration) WaitResult
}

// SignalPoller waits on OS signal delivery and context cancellation
type SignalPoller struct {
	ctx      context.Context
	sigs     chan os.Signal
	signaled atomic.Bool
}

// NewSignalPoller subscribes to signals, SIGINT and SIGTERM when none are
// given. Call Close to unsubscribe.
func NewSignalPoller(ctx context.Context, signals ...os.Signal) *SignalPoller {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	p := &SignalPoller{
		ctx:  ctx,
		sigs: make(chan os.Signal, 1),
	}
	signal.Notify(p.sigs, signals...)
	return p
}

// Wait blocks until a signal arrives, the context ends or timeout elapses
func (p *SignalPoller) Wait(timeout time.Duration) WaitResult {
	if p.signaled.Load() {
		return WaitSignaled
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sig := <-p.sigs:
		log().Info("termination signal received", logger.String("signal", sig.String()))
		p.signaled.Store(true)
		return WaitSignaled
	case <-p.ctx.Done():
		p.signaled.Store(true)
		return WaitSignaled
	case <-timer.C:
		return WaitTimedOut
	}
}

// Close stops signal delivery to the poller
func (p *SignalPoller) Close() {
	signal.Stop(p.sigs)
}

// sleepStep bounds how long a SleepPoller sleeps between flag checks
const sleepStep = 10 * time.Millisecond

// SleepPoller sleeps in short steps and re-checks a termination flag. It
// serves platforms or embedders where signal delivery is handled elsewhere:
// whoever observes the request calls Trigger.
type SleepPoller struct {
	ctx       context.Context
	triggered atomic.Bool
}

// NewSleepPoller returns a poller that also treats ctx cancellation as a trigger
func NewSleepPoller(ctx context.Context) *SleepPoller {
	return &SleepPoller{ctx: ctx}
}

// Trigger requests termination
func (p *SleepPoller) Trigger() {
	p.triggered.Store(true)
}

// Wait sleeps until timeout, waking early once triggered
func (p *SleepPoller) Wait(timeout time.Duration) WaitResult {
	deadline := time.Now().Add(timeout)
	for {
		if p.triggered.Load() || p.ctx.Err() != nil {
			return WaitSignaled
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return WaitTimedOut
		}
		time.Sleep(min(remaining, sleepStep))
	}
}

// NewPoller builds the poller selected by kind, "signal" or "sleep". The
// returned stop function releases signal subscriptions.
func NewPoller(ctx context.Context, kind string) (Poller, func()) {
	if kind == PollerSleep {
		sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		return NewSleepPoller(sctx), stop
	}
	p := NewSignalPoller(ctx)
	return p, p.Close
}

const (
	PollerSignal = "signal"
	PollerSleep  = "sleep"
)
