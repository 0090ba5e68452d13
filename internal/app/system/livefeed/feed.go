// Package livefeed turns database change notifications into a stream of
// full snapshots.
//
// A subscription loads the complete collection (or one document) when it
// starts and again after every change notification, and hands the result to
// a single callback. Snapshots are never diffs. The first failure is
// classified into a FeedError, delivered once, and ends the subscription;
// there is no retry.
package livefeed

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/learnerdash/internal/app/system/metrics"
	"github.com/dalemusser/learnerdash/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Query names what a subscription observes. An empty ID means the whole
// collection.
type Query struct {
	Collection string
	ID         string
}

func (q Query) scope() string {
	if q.ID == "" {
		return "collection"
	}
	return "document"
}

// Source is the document store behind a Feed.
type Source interface {
	// Find loads every document matching q. Version is an opaque
	// fingerprint of the result; equal versions mean equal contents.
	Find(ctx context.Context, q Query) (docs []models.UserDoc, version string, err error)
	// Watch opens a change notifier for q.
	Watch(ctx context.Context, q Query) (Notifier, error)
}

// Notifier reports changes to the watched data.
type Notifier interface {
	// Wait blocks until the next change, ctx is done, or the notifier fails.
	Wait(ctx context.Context) error
	Close(ctx context.Context) error
}

// Snapshot is one complete delivery of a collection subscription.
type Snapshot struct {
	Docs []models.UserDoc
	At   time.Time
	Seq  int
}

// DocSnapshot is one delivery of a document subscription.
type DocSnapshot struct {
	Doc    models.UserDoc
	Exists bool
	At     time.Time
	Seq    int
}

// Options tune a Feed.
type Options struct {
	// SkipUnchanged suppresses deliveries whose version equals the previous
	// one. Poll-based sources set this since every tick is a "change".
	SkipUnchanged bool
}

// Feed opens subscriptions against a Source.
type Feed struct {
	src     Source
	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Feed. m may be nil.
func New(src Source, opts Options, logger *zap.Logger, m *metrics.Metrics) *Feed {
	return &Feed{src: src, opts: opts, log: logger, metrics: m, now: time.Now}
}

// SubscribeCollection delivers full snapshots of a collection to onSnapshot
// until the subscription is cancelled, ctx ends, or an error is delivered to
// onError.
func (f *Feed) SubscribeCollection(ctx context.Context, collection string, onSnapshot func(Snapshot), onError func(*FeedError)) *Subscription {
	q := Query{Collection: collection}
	return f.start(ctx, q, func(docs []models.UserDoc, at time.Time, seq int) {
		onSnapshot(Snapshot{Docs: docs, At: at, Seq: seq})
	}, onError)
}

// SubscribeDocument delivers one document, or its absence, on every change.
func (f *Feed) SubscribeDocument(ctx context.Context, collection, id string, onDoc func(DocSnapshot), onError func(*FeedError)) *Subscription {
	q := Query{Collection: collection, ID: id}
	return f.start(ctx, q, func(docs []models.UserDoc, at time.Time, seq int) {
		ds := DocSnapshot{At: at, Seq: seq}
		if len(docs) > 0 {
			ds.Doc, ds.Exists = docs[0], true
		}
		onDoc(ds)
	}, onError)
}

// Subscription is the cancellation handle of a live subscription.
type Subscription struct {
	ID    string
	Query Query

	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Cancel stops delivery and waits for the subscription goroutine to exit.
// It is safe to call more than once and from several goroutines, but not
// from inside a delivery callback.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has stopped for any reason.
func (s *Subscription) Done() <-chan struct{} { return s.done }

type deliverFunc func(docs []models.UserDoc, at time.Time, seq int)

func (f *Feed) start(parent context.Context, q Query, deliver deliverFunc, onError func(*FeedError)) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	sub := &Subscription{
		ID:     uuid.NewString(),
		Query:  q,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go f.run(ctx, sub, deliver, onError)
	return sub
}

func (f *Feed) run(ctx context.Context, sub *Subscription, deliver deliverFunc, onError func(*FeedError)) {
	defer close(sub.done)
	defer sub.once.Do(sub.cancel)

	scope := sub.Query.scope()
	log := f.log.With(
		zap.String("subscription", sub.ID),
		zap.String("collection", sub.Query.Collection),
		zap.String("scope", scope),
	)
	if sub.Query.ID != "" {
		log = log.With(zap.String("doc_id", sub.Query.ID))
	}

	f.metrics.SubscriptionOpened(scope)
	defer f.metrics.SubscriptionClosed(scope)
	log.Debug("subscription opened")
	defer log.Debug("subscription closed")

	fail := func(err error) {
		// A cancelled subscription reports nothing.
		if ctx.Err() == context.Canceled {
			return
		}
		fe := Classify(err)
		f.metrics.FeedError(fe.Kind.String())
		log.Warn("subscription failed", zap.String("kind", fe.Kind.String()), zap.Error(fe.Err))
		if onError != nil {
			onError(fe)
		}
	}

	// Watch before the initial load so no change between the two is lost.
	n, err := f.src.Watch(ctx, sub.Query)
	if err != nil {
		fail(err)
		return
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.Close(cctx); err != nil {
			log.Debug("notifier close", zap.Error(err))
		}
	}()

	var (
		seq     int
		version string
	)
	load := func() bool {
		docs, v, err := f.src.Find(ctx, sub.Query)
		if err != nil {
			fail(err)
			return false
		}
		if f.opts.SkipUnchanged && seq > 0 && v != "" && v == version {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		version = v
		seq++
		deliver(docs, f.now(), seq)
		f.metrics.SnapshotDelivered(scope)
		return true
	}

	if !load() {
		return
	}
	for {
		if err := n.Wait(ctx); err != nil {
			fail(err)
			return
		}
		if !load() {
			return
		}
	}
}

// Load reads a collection once, outside any subscription. It is used to
// render the first page and by the JSON API.
func (f *Feed) Load(ctx context.Context, collection string) ([]models.UserDoc, *FeedError) {
	docs, _, err := f.src.Find(ctx, Query{Collection: collection})
	if err != nil {
		fe := Classify(err)
		f.metrics.FeedError(fe.Kind.String())
		return nil, fe
	}
	return docs, nil
}

// LoadDocument reads one document once. ok is false when it does not exist.
func (f *Feed) LoadDocument(ctx context.Context, collection, id string) (doc models.UserDoc, ok bool, fe *FeedError) {
	docs, _, err := f.src.Find(ctx, Query{Collection: collection, ID: id})
	if err != nil {
		fe = Classify(err)
		f.metrics.FeedError(fe.Kind.String())
		return models.UserDoc{}, false, fe
	}
	if len(docs) == 0 {
		return models.UserDoc{}, false, nil
	}
	return docs[0], true, nil
}
