// internal/app/features/users/handler.go
package users

import (
	"time"

	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
	"github.com/dalemusser/learnerdash/internal/app/system/viewdata"
	"github.com/dalemusser/learnerdash/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the users list, the per-user detail page and their live
// streams. Each stream owns exactly one subscription.
type Handler struct {
	Feed       *livefeed.Feed
	Collection string
	Heartbeat  time.Duration
	Render     viewdata.Renderer
	Log        *zap.Logger
}

func NewHandler(feed *livefeed.Feed, collection string, heartbeat time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		Feed:       feed,
		Collection: collection,
		Heartbeat:  heartbeat,
		Render:     viewdata.Templates{},
		Log:        logger,
	}
}

// listUpdate is one value in a list stream's mailbox.
type listUpdate struct {
	docs []models.UserDoc
	at   time.Time
	err  *livefeed.FeedError
}

// docUpdate is one value in a detail stream's mailbox.
type docUpdate struct {
	doc    models.UserDoc
	exists bool
	at     time.Time
	err    *livefeed.FeedError
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("15:04:05 UTC")
}
