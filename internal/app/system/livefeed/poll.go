// internal/app/system/livefeed/poll.go
package livefeed

import (
	"context"
	"time"

	"github.com/dalemusser/learnerdash/internal/domain/models"
)

// Polling wraps src so that Watch ticks every interval instead of opening a
// change stream. Use it with Options.SkipUnchanged against servers that do
// not support change streams (standalone mongod).
func Polling(src Source, interval time.Duration) Source {
	return &pollSource{src: src, interval: interval}
}

type pollSource struct {
	src      Source
	interval time.Duration
}

func (p *pollSource) Find(ctx context.Context, q Query) ([]models.UserDoc, string, error) {
	return p.src.Find(ctx, q)
}

func (p *pollSource) Watch(ctx context.Context, q Query) (Notifier, error) {
	return &tickNotifier{t: time.NewTicker(p.interval)}, nil
}

type tickNotifier struct {
	t *time.Ticker
}

func (n *tickNotifier) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-n.t.C:
		return nil
	}
}

func (n *tickNotifier) Close(context.Context) error {
	n.t.Stop()
	return nil
}
