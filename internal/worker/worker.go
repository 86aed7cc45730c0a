// Package worker provides the counting semaphore used to bound
// in-flight concurrent work across exportcore's components.
package worker

// Semaphore is a counting semaphore. The Encoder uses one to cap in-flight
// submitted-but-not-yet-emitted frames at MAX_IN_FLIGHT, the sole mechanism
// preventing unbounded codec-queue memory growth.
type Semaphore struct {
	permits chan struct{}
}

// NewSemaphore creates a semaphore pre-filled with count permits.
func NewSemaphore(count int) *Semaphore {
	if count <= 0 {
		count = 1
	}
	s := &Semaphore{
		permits: make(chan struct{}, count),
	}
	for i := 0; i < count; i++ {
		s.permits <- struct{}{}
	}
	return s
}

// Release returns a permit to the semaphore.
func (s *Semaphore) Release() {
	select {
	case s.permits <- struct{}{}:
	default:
		// Semaphore is full; a caller released more permits than it acquired.
	}
}

// Chan returns the underlying permit channel, for context-aware acquisition
// via select alongside a ctx.Done() case.
func (s *Semaphore) Chan() <-chan struct{} {
	return s.permits
}

// InFlight returns the number of permits currently checked out.
func (s *Semaphore) InFlight() int {
	return cap(s.permits) - len(s.permits)
}
