package encoder

import (
	"sync"
	"sync/atomic"

	"github.com/tphakala/wavenc/internal/codec"
)

// fakeCodec emits one byte per encoded frame and a four byte trailer on
// flush. It tracks how many streams are open across all instances.
type fakeCodec struct {
	shared *fakeShared

	open    bool
	trailer bool
}

type fakeShared struct {
	frameSize int
	active    atomic.Int32
	maxActive atomic.Int32
	inits     atomic.Int32
	encodeErr error
	initErr   error

	// gate, when set, blocks every Encode until it is closed
	gate     chan struct{}
	gateOnce sync.Once
}

func newFakeShared(frameSize int) *fakeShared {
	return &fakeShared{frameSize: frameSize}
}

func (s *fakeShared) factory() codec.Factory {
	return func() codec.Codec { return &fakeCodec{shared: s} }
}

func (s *fakeShared) release() {
	s.gateOnce.Do(func() {
		if s.gate != nil {
			close(s.gate)
		}
	})
}

func (c *fakeCodec) Init(codec.Params) error {
	if c.shared.initErr != nil {
		return c.shared.initErr
	}
	c.shared.inits.Add(1)
	c.open = true
	c.trailer = false
	n := c.shared.active.Add(1)
	for {
		old := c.shared.maxActive.Load()
		if n <= old || c.shared.maxActive.CompareAndSwap(old, n) {
			break
		}
	}
	return nil
}

func (c *fakeCodec) FrameSize() int { return c.shared.frameSize }

func (c *fakeCodec) MaxOutputSize() int { return codec.MaxOutputFor(c.shared.frameSize) }

func (c *fakeCodec) Encode(left, right []int32, frames int, out []byte) (int, error) {
	if c.shared.gate != nil {
		<-c.shared.gate
	}
	if c.shared.encodeErr != nil {
		return 0, c.shared.encodeErr
	}
	for i := range frames {
		out[i] = byte(left[i] >> 24)
	}
	return frames, nil
}

func (c *fakeCodec) Flush(out []byte) (int, error) {
	if c.trailer {
		return 0, nil
	}
	c.trailer = true
	return copy(out, "TAIL"), nil
}

func (c *fakeCodec) Close() error {
	if c.open {
		c.open = false
		c.shared.active.Add(-1)
	}
	return nil
}
