// internal/app/system/livefeed/latest.go
package livefeed

import "sync"

// Latest is a one-slot mailbox. Put replaces any value not yet taken, so a
// slow consumer only ever sees the most recent snapshot.
type Latest[T any] struct {
	mu    sync.Mutex
	v     T
	has   bool
	ready chan struct{}
}

// NewLatest returns an empty mailbox.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ready: make(chan struct{}, 1)}
}

// Put stores v, discarding any undelivered value.
func (l *Latest[T]) Put(v T) {
	l.mu.Lock()
	l.v, l.has = v, true
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

// C receives a signal after Put. A signal may be stale if Take already
// drained the value; Take reports that with ok=false.
func (l *Latest[T]) C() <-chan struct{} { return l.ready }

// Take removes and returns the pending value.
func (l *Latest[T]) Take() (v T, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok = l.v, l.has
	var zero T
	l.v, l.has = zero, false
	return v, ok
}
