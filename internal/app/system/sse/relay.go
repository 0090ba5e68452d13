package sse

import (
	"context"
	"time"

	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
)

// Relay forwards values from box to emit until ctx ends, emit asks to stop,
// or a write fails. Only the newest pending value is emitted. A keep-alive
// comment is sent every heartbeat (0 disables it).
func Relay[T any](ctx context.Context, s *Stream, box *livefeed.Latest[T], heartbeat time.Duration, emit func(T) (stop bool, err error)) error {
	var tick <-chan time.Time
	if heartbeat > 0 {
		t := time.NewTicker(heartbeat)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if err := s.Comment("ping"); err != nil {
				return err
			}
		case <-box.C():
			v, ok := box.Take()
			if !ok {
				continue
			}
			stop, err := emit(v)
			if err != nil || stop {
				return err
			}
		}
	}
}
