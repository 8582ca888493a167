package util

import (
	"errors"
	"sync"
)

// Cancellation is closed once, with a reason, when the thing it guards goes
// away. A node uses one for its lifetime: socket readers and Spin watch
// Finished and report Error once it fires.
type Cancellation interface {
	Finished() <-chan struct{} // Closed when Cancel is first called.
	Cancel(error) error        // Records err and closes Finished; returns the earlier reason if already cancelled.
	Error() error              // The reason given to Cancel, nil before that.
}

// ErrCancelled is used when Cancel is called with a nil reason.
var ErrCancelled = errors.New("cancelled")

type cancellation struct {
	cancel chan struct{}
	mutex  sync.RWMutex
	err    error
	done   bool
}

func NewCancellation() Cancellation {
	return &cancellation{
		cancel: make(chan struct{}),
	}
}

func (c *cancellation) Finished() <-chan struct{} {
	return c.cancel
}

func (c *cancellation) Cancel(err error) error {
	if err == nil {
		err = ErrCancelled
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.done {
		return c.err
	}
	c.err = err
	c.done = true
	close(c.cancel)
	return nil
}

func (c *cancellation) Error() error {
	c.mutex.RLock()
	err := c.err
	c.mutex.RUnlock()
	return err
}
