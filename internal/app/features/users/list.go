// internal/app/features/users/list.go
package users

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
	"github.com/dalemusser/learnerdash/internal/app/system/sse"
	"github.com/dalemusser/learnerdash/internal/app/system/stats"
	"github.com/dalemusser/learnerdash/internal/app/system/timeouts"
	"github.com/dalemusser/learnerdash/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

type listData struct {
	viewdata.BaseVM
	Table tableData
}

// tableData is the live region of the list page.
type tableData struct {
	Q         string
	EventsURL string
	Rows      []listRow
	Shown     int
	Total     int
	Error     string
	Empty     bool
	Updated   string
}

type listRow struct {
	N int
	stats.Row
}

// DetailURL links to the row's detail page. Ids are stored strings and may
// hold path characters.
func (r listRow) DetailURL() string { return "/users/" + url.PathEscape(r.ID) }

// Filtering reports whether the header should read "N of M".
func (t tableData) Filtering() bool { return t.Q != "" }

func eventsURL(q string) string {
	if q == "" {
		return "/users/events"
	}
	return "/users/events?q=" + url.QueryEscape(q)
}

// rows sorts a snapshot by name and applies the search query.
func rows(u listUpdate, q string) (all, shown []stats.Row) {
	all = stats.DeriveRows(u.docs)
	stats.SortByName(all)
	return all, stats.Filter(all, q)
}

func table(u listUpdate, q string) tableData {
	t := tableData{Q: q, EventsURL: eventsURL(q), Updated: stamp(u.at)}
	if u.err != nil {
		t.Error = u.err.Message()
		return t
	}
	all, shown := rows(u, q)
	t.Total = len(all)
	t.Shown = len(shown)
	t.Empty = len(all) == 0
	t.Rows = make([]listRow, len(shown))
	for i, r := range shown {
		t.Rows[i] = listRow{N: i + 1, Row: r}
	}
	return t
}

func (h *Handler) loadTable(r *http.Request, q string) tableData {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Load(), h.Log, "users load")
	defer cancel()
	docs, fe := h.Feed.Load(ctx, h.Collection)
	return table(listUpdate{docs: docs, at: time.Now(), err: fe}, q)
}

// ServeList handles GET /users (with optional ?q= search).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := query.Search(r, "q")
	data := listData{
		BaseVM: viewdata.NewBaseVM(r, "Users", "/dashboard"),
		Table:  h.loadTable(r, q),
	}
	h.Render.Page(w, r, "users_list", data)
}

// ServeTable handles GET /users/table, the HTMX search target. It returns
// the live region with a stream URL for the new query, so the browser drops
// the old stream and opens one for the current search.
func (h *Handler) ServeTable(w http.ResponseWriter, r *http.Request) {
	q := query.Search(r, "q")
	h.Render.Snippet(w, "users_live", h.loadTable(r, q))
}

// ServeListEvents handles GET /users/events. Every snapshot is sorted,
// filtered by ?q= and sent as a "users" event.
func (h *Handler) ServeListEvents(w http.ResponseWriter, r *http.Request) {
	q := query.Search(r, "q")
	stream, err := sse.Start(w)
	if err != nil {
		h.Log.Error("users stream", zap.Error(err))
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	box := livefeed.NewLatest[listUpdate]()
	sub := h.Feed.SubscribeCollection(r.Context(), h.Collection,
		func(s livefeed.Snapshot) { box.Put(listUpdate{docs: s.Docs, at: s.At}) },
		func(fe *livefeed.FeedError) { box.Put(listUpdate{err: fe}) },
	)
	defer sub.Cancel()

	err = sse.Relay(r.Context(), stream, box, h.Heartbeat, func(u listUpdate) (bool, error) {
		html := sse.Capture(func(w http.ResponseWriter) {
			h.Render.Snippet(w, "users_table", table(u, q))
		})
		return false, stream.Event("users", html)
	})
	if err != nil {
		h.Log.Debug("users stream closed", zap.String("subscription", sub.ID), zap.Error(err))
	}
}

// ServeAPI handles GET /api/users?q=.
func (h *Handler) ServeAPI(w http.ResponseWriter, r *http.Request) {
	q := query.Search(r, "q")
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Load(), h.Log, "users api")
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	docs, fe := h.Feed.Load(ctx, h.Collection)
	if fe != nil {
		h.Log.Warn("users api: load failed", zap.String("kind", fe.Kind.String()), zap.Error(fe.Err))
		w.WriteHeader(fe.HTTPStatus())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": fe.Message(),
			"kind":  fe.Kind.String(),
		})
		return
	}

	all, shown := rows(listUpdate{docs: docs}, q)
	if shown == nil {
		shown = []stats.Row{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"query": q,
		"total": len(all),
		"users": shown,
	})
}
