package encoder

import "sync/atomic"

// CancelToken is a cooperative cancellation flag. Setting and checking
// never block each other.
type CancelToken struct {
	cancelled atomic.Bool
}

// RequestCancel sets the flag. Repeated calls are harmless.
func (c *CancelToken) RequestCancel() {
	c.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested
func (c *CancelToken) Cancelled() bool {
	return c.cancelled.Load()
}

// Reset clears the flag for a new session
func (c *CancelToken) Reset() {
	c.cancelled.Store(false)
}
