package watcher

// Signal is a coalescing change notification: any number of Notify calls
// made while nobody is receiving collapse into one pending wake-up.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates a Signal with nothing pending.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify records a change without blocking.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C returns the receive side.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}
