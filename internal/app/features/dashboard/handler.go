// internal/app/features/dashboard/handler.go
package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
	"github.com/dalemusser/learnerdash/internal/app/system/metrics"
	"github.com/dalemusser/learnerdash/internal/app/system/sse"
	"github.com/dalemusser/learnerdash/internal/app/system/stats"
	"github.com/dalemusser/learnerdash/internal/app/system/timeouts"
	"github.com/dalemusser/learnerdash/internal/app/system/viewdata"
	"github.com/dalemusser/learnerdash/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the overview page and its live stream.
type Handler struct {
	Feed       *livefeed.Feed
	Collection string
	Heartbeat  time.Duration
	Metrics    *metrics.Metrics
	Render     viewdata.Renderer
	Log        *zap.Logger

	now func() time.Time
}

func NewHandler(feed *livefeed.Feed, collection string, heartbeat time.Duration, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Feed:       feed,
		Collection: collection,
		Heartbeat:  heartbeat,
		Metrics:    m,
		Render:     viewdata.Templates{},
		Log:        logger,
		now:        time.Now,
	}
}

type pageData struct {
	viewdata.BaseVM
	Body bodyData
}

// bodyData is everything inside the live region. It is rendered by both the
// page and the event stream.
type bodyData struct {
	Result       stats.Result
	Completers   []completerRow
	MaxQuestions int
	Error        string
	Updated      string
	Charts       chartData
}

type completerRow struct {
	Rank int
	stats.FullCourseUser
}

type chartData struct {
	Profession string
	Outcome    string
	Logins     string
}

type chartSeries struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// update is one mailbox value: a snapshot or the error that ended it.
type update struct {
	docs []models.UserDoc
	at   time.Time
	err  *livefeed.FeedError
}

func (h *Handler) compute(docs []models.UserDoc) stats.Result {
	start := time.Now()
	res := stats.Compute(docs, h.now())
	h.Metrics.ObserveAggregate(time.Since(start))
	return res
}

func (h *Handler) body(u update) bodyData {
	if u.err != nil {
		return bodyData{Error: u.err.Message()}
	}
	res := h.compute(u.docs)
	rows := make([]completerRow, len(res.FullCourseUsers))
	for i, fc := range res.FullCourseUsers {
		rows[i] = completerRow{Rank: i + 1, FullCourseUser: fc}
	}
	return bodyData{
		Result:       res,
		Completers:   rows,
		MaxQuestions: stats.MaxQuestions,
		Updated:      u.at.UTC().Format("15:04:05 UTC"),
		Charts:       charts(res),
	}
}

func charts(res stats.Result) chartData {
	enc := func(s chartSeries) string {
		b, _ := json.Marshal(s)
		return string(b)
	}
	return chartData{
		Profession: enc(chartSeries{
			Labels: []string{"Freshers", "Working Professionals", "Other"},
			Data:   []int{res.Stats.Freshers, res.Stats.WorkingProfessionals, res.ProfessionUnknown()},
		}),
		Outcome: enc(chartSeries{
			Labels: []string{"Role Switch", "Others"},
			Data:   []int{res.Stats.RoleSwitchCount, res.RoleSwitchOthers()},
		}),
		Logins: enc(chartSeries{
			Labels: res.LoginLabels(),
			Data:   res.LoginCounts(),
		}),
	}
}

// ServeDashboard renders the overview from a one-shot read. The page then
// opens /dashboard/events to stay current.
//
// GET /dashboard
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Load(), h.Log, "dashboard load")
	defer cancel()

	docs, fe := h.Feed.Load(ctx, h.Collection)
	data := pageData{
		BaseVM: viewdata.NewBaseVM(r, "Overview", "/dashboard"),
		Body:   h.body(update{docs: docs, at: h.now(), err: fe}),
	}
	h.Render.Page(w, r, "dashboard", data)
}

// ServeEvents streams the re-rendered dashboard body for as long as the
// client stays connected. The connection owns one collection subscription.
//
// GET /dashboard/events
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	stream, err := sse.Start(w)
	if err != nil {
		h.Log.Error("dashboard stream", zap.Error(err))
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	box := livefeed.NewLatest[update]()
	sub := h.Feed.SubscribeCollection(r.Context(), h.Collection,
		func(s livefeed.Snapshot) { box.Put(update{docs: s.Docs, at: s.At}) },
		func(fe *livefeed.FeedError) { box.Put(update{err: fe}) },
	)
	defer sub.Cancel()

	h.Log.Debug("dashboard stream opened", zap.String("subscription", sub.ID))

	// After an error the stream stays open and idle. Closing it would make
	// the browser reconnect, which would amount to a retry.
	err = sse.Relay(r.Context(), stream, box, h.Heartbeat, func(u update) (bool, error) {
		html := sse.Capture(func(w http.ResponseWriter) {
			h.Render.Snippet(w, "dashboard_body", h.body(u))
		})
		return false, stream.Event("dashboard", html)
	})
	if err != nil {
		h.Log.Debug("dashboard stream closed", zap.String("subscription", sub.ID), zap.Error(err))
	}
}

// ServeStatsAPI returns the aggregate as JSON.
//
// GET /api/stats
func (h *Handler) ServeStatsAPI(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Load(), h.Log, "stats api")
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	docs, fe := h.Feed.Load(ctx, h.Collection)
	if fe != nil {
		h.Log.Warn("stats api: load failed", zap.String("kind", fe.Kind.String()), zap.Error(fe.Err))
		w.WriteHeader(fe.HTTPStatus())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": fe.Message(),
			"kind":  fe.Kind.String(),
		})
		return
	}

	res := h.compute(docs)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"stats":           res.Stats,
		"fullCourseUsers": res.FullCourseUsers,
		"dailyLogins":     res.DailyLogins,
		"ratingCount":     res.RatingCount,
		"empty":           res.Empty(),
	})
}
