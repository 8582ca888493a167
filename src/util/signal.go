package util

// Signal is a latched, resettable wake-up. Raise may be called any number of
// times from any goroutine; the signal stays set until a receive on C or a
// call to Clear consumes it. Unlike a Cancellation it can fire again.
type Signal struct {
	c chan struct{}
}

func NewSignal() *Signal {
	return &Signal{c: make(chan struct{}, 1)}
}

// Raise sets the signal. It never blocks.
func (s *Signal) Raise() {
	select {
	case s.c <- struct{}{}:
	default:
	}
}

// C is ready to receive while the signal is set. Receiving clears it.
func (s *Signal) C() <-chan struct{} {
	return s.c
}

// Clear resets the signal and reports whether it was set.
func (s *Signal) Clear() bool {
	select {
	case <-s.c:
		return true
	default:
		return false
	}
}
