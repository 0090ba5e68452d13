package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
	"github.com/dalemusser/learnerdash/internal/domain/models"
)

// MemSource is an in-memory livefeed.Source. Set replaces the collection
// and wakes every open notifier; Fail makes the next Find or Wait return err.
type MemSource struct {
	mu      sync.Mutex
	docs    []models.UserDoc
	version int
	err     error
	waiters []chan error
}

// NewMemSource returns a source holding docs.
func NewMemSource(docs ...models.UserDoc) *MemSource {
	return &MemSource{docs: docs, version: 1}
}

// Set replaces the documents and notifies watchers.
func (s *MemSource) Set(docs ...models.UserDoc) {
	s.mu.Lock()
	s.docs = docs
	s.version++
	s.mu.Unlock()
	s.wake(nil)
}

// Fail makes subsequent reads fail with err and wakes watchers with it.
func (s *MemSource) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.wake(err)
}

func (s *MemSource) wake(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.waiters {
		select {
		case ch <- err:
		default:
		}
	}
}

// Find implements livefeed.Source.
func (s *MemSource) Find(_ context.Context, q livefeed.Query) ([]models.UserDoc, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, "", s.err
	}
	v := strconv.Itoa(s.version)
	if q.ID == "" {
		return append([]models.UserDoc(nil), s.docs...), v, nil
	}
	for _, d := range s.docs {
		if d.ID == q.ID {
			return []models.UserDoc{d}, v, nil
		}
	}
	return nil, v, nil
}

// Watch implements livefeed.Source.
func (s *MemSource) Watch(context.Context, livefeed.Query) (livefeed.Notifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan error, 1)
	s.waiters = append(s.waiters, ch)
	return &memNotifier{src: s, ch: ch}, nil
}

// Watchers reports how many notifiers are open.
func (s *MemSource) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}

type memNotifier struct {
	src *MemSource
	ch  chan error
}

func (n *memNotifier) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-n.ch:
		return err
	}
}

func (n *memNotifier) Close(context.Context) error {
	n.src.mu.Lock()
	defer n.src.mu.Unlock()
	for i, ch := range n.src.waiters {
		if ch == n.ch {
			n.src.waiters = append(n.src.waiters[:i], n.src.waiters[i+1:]...)
			break
		}
	}
	return nil
}
