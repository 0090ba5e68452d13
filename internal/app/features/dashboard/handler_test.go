package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/learnerdash/internal/app/system/auth"
	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
	"github.com/dalemusser/learnerdash/internal/app/system/metrics"
	"github.com/dalemusser/learnerdash/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestHandler(src livefeed.Source, m *metrics.Metrics) (*Handler, *testutil.RenderRecorder) {
	feed := livefeed.New(src, livefeed.Options{}, zap.NewNop(), m)
	h := NewHandler(feed, "users", 0, m, zap.NewNop())
	rr := &testutil.RenderRecorder{}
	h.Render = rr
	h.now = func() time.Time { return fixedNow }
	return h, rr
}

func sampleSource() *testutil.MemSource {
	return testutil.NewMemSource(
		testutil.LearnerDoc("u1", "Amit", "amit@example.com", "Fresher"),
		testutil.With(testutil.LearnerDoc("u2", "Bela", "bela@example.com", "Software Engineer"),
			bson.M{"surveys": bson.M{"day1_feedback": bson.M{"rating": 4}}}),
		testutil.AdminDoc("a1", "Admin"),
	)
}

func TestServeDashboard_RendersAggregate(t *testing.T) {
	m := metrics.New()
	h, rr := newTestHandler(sampleSource(), m)

	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, testutil.NewAdminRequest("/dashboard"))

	page := rr.LastPage(t)
	if page.Name != "dashboard" {
		t.Fatalf("template: got %q, want %q", page.Name, "dashboard")
	}
	data := page.Data.(pageData)
	if data.Title != "Overview" || !data.IsAdmin {
		t.Errorf("BaseVM = %+v", data.BaseVM)
	}
	if data.Body.Error != "" {
		t.Fatalf("unexpected error %q", data.Body.Error)
	}
	s := data.Body.Result.Stats
	if s.TotalUsers != 2 || s.Freshers != 1 || s.WorkingProfessionals != 1 {
		t.Errorf("stats = %+v", s)
	}
	if data.Body.Result.AverageRatingText() != "4.00" {
		t.Errorf("average: got %q, want %q", data.Body.Result.AverageRatingText(), "4.00")
	}
	if !strings.Contains(data.Body.Charts.Profession, `"data":[1,1,0]`) {
		t.Errorf("profession chart = %s", data.Body.Charts.Profession)
	}
	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(scrape.Body.String(), "learnerdash_aggregate_duration_seconds_count 1") {
		t.Error("aggregation duration not observed")
	}
}

func TestServeDashboard_EmptyIsAdvisory(t *testing.T) {
	h, rr := newTestHandler(testutil.NewMemSource(), nil)
	h.ServeDashboard(httptest.NewRecorder(), testutil.NewAdminRequest("/dashboard"))

	body := rr.LastPage(t).Data.(pageData).Body
	if body.Error != "" {
		t.Errorf("empty snapshot reported as error: %q", body.Error)
	}
	if !body.Result.Empty() || body.Result.Stats.TotalUsers != 0 {
		t.Errorf("result = %+v, want empty", body.Result)
	}
	if body.Completers == nil {
		t.Error("completers should be an empty list, not nil")
	}
}

func TestServeDashboard_FeedError(t *testing.T) {
	src := testutil.NewMemSource()
	src.Fail(context.DeadlineExceeded)
	h, rr := newTestHandler(src, nil)

	h.ServeDashboard(httptest.NewRecorder(), testutil.NewAdminRequest("/dashboard"))

	want := (&livefeed.FeedError{Kind: livefeed.KindUnavailable}).Message()
	if got := rr.LastPage(t).Data.(pageData).Body.Error; got != want {
		t.Errorf("error: got %q, want %q", got, want)
	}
}

func TestServeStatsAPI(t *testing.T) {
	h, _ := newTestHandler(sampleSource(), nil)

	rec := httptest.NewRecorder()
	h.ServeStatsAPI(rec, testutil.NewAdminRequest("/api/stats"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var got struct {
		Stats struct {
			TotalUsers    int     `json:"totalUsers"`
			AverageRating float64 `json:"averageRating"`
		} `json:"stats"`
		DailyLogins []json.RawMessage `json:"dailyLogins"`
		Empty       bool              `json:"empty"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Stats.TotalUsers != 2 || got.Stats.AverageRating != 4 {
		t.Errorf("stats = %+v", got.Stats)
	}
	if len(got.DailyLogins) != 30 {
		t.Errorf("dailyLogins: got %d entries, want 30", len(got.DailyLogins))
	}
	if got.Empty {
		t.Error("empty should be false")
	}
}

func TestServeStatsAPI_Error(t *testing.T) {
	src := testutil.NewMemSource()
	src.Fail(context.DeadlineExceeded)
	h, _ := newTestHandler(src, nil)

	rec := httptest.NewRecorder()
	h.ServeStatsAPI(rec, testutil.NewAdminRequest("/api/stats"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var got map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if got["kind"] != "unavailable" || !strings.HasPrefix(got["error"], "Failed to fetch data.") {
		t.Errorf("body = %v", got)
	}
}

func TestServeEvents_StreamsSnapshots(t *testing.T) {
	src := sampleSource()
	h, rr := newTestHandler(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := testutil.NewAdminRequest("/dashboard/events").WithContext(ctx)
	rec := testutil.NewStreamRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeEvents(rec, req)
	}()

	first := rr.WaitSnippets(t, 1)[0]
	if first.Name != "dashboard_body" {
		t.Fatalf("snippet: got %q, want %q", first.Name, "dashboard_body")
	}
	if n := first.Data.(bodyData).Result.Stats.TotalUsers; n != 2 {
		t.Errorf("first snapshot total = %d, want 2", n)
	}

	src.Set(testutil.LearnerDoc("u3", "Chen", "chen@example.com", "Student"))
	second := rr.WaitSnippets(t, 2)[1]
	if n := second.Data.(bodyData).Result.Stats.TotalUsers; n != 1 {
		t.Errorf("second snapshot total = %d, want 1", n)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after client disconnect")
	}
	if src.Watchers() != 0 {
		t.Errorf("subscription leaked: %d watchers open", src.Watchers())
	}
	if body := rec.Body(); !strings.Contains(body, "event: dashboard\ndata: snippet:dashboard_body") {
		t.Errorf("stream body = %q", body)
	}
}

func TestServeEvents_ErrorKeepsStreamOpen(t *testing.T) {
	src := sampleSource()
	h, rr := newTestHandler(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := testutil.NewAdminRequest("/dashboard/events").WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeEvents(testutil.NewStreamRecorder(), req)
	}()

	rr.WaitSnippets(t, 1)
	src.Fail(&livefeedTestErr{})
	last := rr.WaitSnippets(t, 2)[1].Data.(bodyData)
	if !strings.HasPrefix(last.Error, "Failed to fetch data. Error: boom") {
		t.Errorf("error body = %q", last.Error)
	}

	select {
	case <-done:
		t.Fatal("stream closed after a feed error; the browser would reconnect")
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	<-done
}

type livefeedTestErr struct{}

func (*livefeedTestErr) Error() string { return "boom" }

func TestRoutes_RequireAdmin(t *testing.T) {
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "s", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	h, rr := newTestHandler(sampleSource(), nil)
	router := Routes(h, sm)

	req := testutil.WithUser(httptest.NewRequest("GET", "/", nil), testutil.LearnerUser())
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/forbidden" {
		t.Errorf("non-admin: got %d %q, want 303 /forbidden", rec.Code, rec.Header().Get("Location"))
	}
	if len(rr.Pages()) != 0 {
		t.Error("dashboard rendered for a non-admin")
	}
}
