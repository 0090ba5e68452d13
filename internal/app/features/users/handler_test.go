package users

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/learnerdash/internal/app/resources"
	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
	"github.com/dalemusser/learnerdash/internal/app/system/stats"
	"github.com/dalemusser/learnerdash/internal/domain/models"
	"github.com/dalemusser/learnerdash/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func newTestHandler(src livefeed.Source) (*Handler, *testutil.RenderRecorder) {
	feed := livefeed.New(src, livefeed.Options{}, zap.NewNop(), nil)
	h := NewHandler(feed, "users", 0, zap.NewNop())
	rr := &testutil.RenderRecorder{}
	h.Render = rr
	return h, rr
}

func sampleSource() *testutil.MemSource {
	return testutil.NewMemSource(
		testutil.LearnerDoc("u1", "zoe", "zoe@example.com", "Fresher"),
		testutil.With(testutil.LearnerDoc("u2", "Amit", "amit@corp.example", "Software Engineer"),
			bson.M{
				"surveys": bson.M{"day1_feedback": bson.M{"rating": 5}},
				"stats":   bson.M{"totalPoints": 40, "totalCorrect": 100, "totalIncorrect": 30},
			}),
		testutil.LearnerDoc("u3", "Bela", "bela@example.com", "Designer"),
		testutil.AdminDoc("a1", "Admin"),
	)
}

func names(rows []listRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestServeList_SortedByName(t *testing.T) {
	h, rr := newTestHandler(sampleSource())

	h.ServeList(httptest.NewRecorder(), testutil.NewAdminRequest("/users"))

	page := rr.LastPage(t)
	if page.Name != "users_list" {
		t.Fatalf("template: got %q, want users_list", page.Name)
	}
	tbl := page.Data.(listData).Table
	got := strings.Join(names(tbl.Rows), ",")
	if got != "Admin,Amit,Bela,zoe" {
		t.Errorf("order: got %s, want Admin,Amit,Bela,zoe", got)
	}
	if tbl.Total != 4 || tbl.Shown != 4 || tbl.Filtering() {
		t.Errorf("counts: total=%d shown=%d filtering=%v", tbl.Total, tbl.Shown, tbl.Filtering())
	}
	if tbl.Rows[0].N != 1 || tbl.Rows[3].N != 4 {
		t.Errorf("row numbers = %d..%d", tbl.Rows[0].N, tbl.Rows[3].N)
	}
	if tbl.EventsURL != "/users/events" {
		t.Errorf("events url = %q", tbl.EventsURL)
	}
	amit := tbl.Rows[1]
	if amit.RatingText() != "5" || amit.QuestionsCompleted != 115 || amit.TotalPoints != 40 {
		t.Errorf("amit row = %+v", amit.Row)
	}
}

func TestServeList_Search(t *testing.T) {
	h, rr := newTestHandler(sampleSource())

	h.ServeList(httptest.NewRecorder(), testutil.NewAdminRequest("/users?q=example.com"))

	tbl := rr.LastPage(t).Data.(listData).Table
	if got := strings.Join(names(tbl.Rows), ","); got != "Bela,zoe" {
		t.Errorf("filtered: got %s", got)
	}
	if tbl.Shown != 2 || tbl.Total != 4 || !tbl.Filtering() {
		t.Errorf("counts: shown=%d total=%d", tbl.Shown, tbl.Total)
	}
	if tbl.EventsURL != "/users/events?q=example.com" {
		t.Errorf("events url = %q", tbl.EventsURL)
	}
}

func TestServeList_EmptyAndError(t *testing.T) {
	h, rr := newTestHandler(testutil.NewMemSource())
	h.ServeList(httptest.NewRecorder(), testutil.NewAdminRequest("/users"))
	tbl := rr.LastPage(t).Data.(listData).Table
	if !tbl.Empty || tbl.Error != "" || len(tbl.Rows) != 0 {
		t.Errorf("empty table = %+v", tbl)
	}

	src := testutil.NewMemSource()
	src.Fail(context.DeadlineExceeded)
	h, rr = newTestHandler(src)
	h.ServeList(httptest.NewRecorder(), testutil.NewAdminRequest("/users"))
	tbl = rr.LastPage(t).Data.(listData).Table
	if !strings.HasPrefix(tbl.Error, "Failed to fetch data.") {
		t.Errorf("error = %q", tbl.Error)
	}
}

func TestServeTable_ReturnsLiveRegion(t *testing.T) {
	h, rr := newTestHandler(sampleSource())

	rec := httptest.NewRecorder()
	h.ServeTable(rec, testutil.NewAdminRequest("/users/table?q=bela"))

	snips := rr.Snippets()
	if len(snips) != 1 || snips[0].Name != "users_live" {
		t.Fatalf("snippets = %+v", snips)
	}
	tbl := snips[0].Data.(tableData)
	if tbl.Shown != 1 || tbl.Rows[0].ID != "u3" {
		t.Errorf("table = %+v", tbl)
	}
	if tbl.EventsURL != "/users/events?q=bela" {
		t.Errorf("events url = %q", tbl.EventsURL)
	}
}

func TestServeListEvents_FiltersEachSnapshot(t *testing.T) {
	src := sampleSource()
	h, rr := newTestHandler(src)

	ctx, cancel := context.WithCancel(context.Background())
	req := testutil.NewAdminRequest("/users/events?q=amit").WithContext(ctx)
	rec := testutil.NewStreamRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeListEvents(rec, req)
	}()

	first := rr.WaitSnippets(t, 1)[0]
	if first.Name != "users_table" {
		t.Fatalf("snippet: got %q", first.Name)
	}
	if tbl := first.Data.(tableData); tbl.Shown != 1 || tbl.Total != 4 {
		t.Errorf("first: shown=%d total=%d", tbl.Shown, tbl.Total)
	}

	src.Set(
		testutil.LearnerDoc("u2", "Amit", "amit@corp.example", "Software Engineer"),
		testutil.LearnerDoc("u9", "Amita", "amita@example.com", "Fresher"),
	)
	second := rr.WaitSnippets(t, 2)[1].Data.(tableData)
	if got := strings.Join(names(second.Rows), ","); got != "Amit,Amita" {
		t.Errorf("second: got %s", got)
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
	if !strings.Contains(rec.Body(), "event: users\ndata: snippet:users_table") {
		t.Errorf("stream body = %q", rec.Body())
	}
}

func TestServeAPI(t *testing.T) {
	h, _ := newTestHandler(sampleSource())

	rec := httptest.NewRecorder()
	h.ServeAPI(rec, testutil.NewAdminRequest("/api/users?q=zoe"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Query string `json:"query"`
		Total int    `json:"total"`
		Users []struct {
			ID     string   `json:"id"`
			Badge  string   `json:"badge"`
			Rating *float64 `json:"rating"`
		} `json:"users"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Query != "zoe" || got.Total != 4 || len(got.Users) != 1 {
		t.Fatalf("body = %+v", got)
	}
	if got.Users[0].ID != "u1" || got.Users[0].Badge != "fresher" || got.Users[0].Rating != nil {
		t.Errorf("user = %+v", got.Users[0])
	}
}

func TestServeAPI_NoMatchIsEmptyList(t *testing.T) {
	h, _ := newTestHandler(sampleSource())

	rec := httptest.NewRecorder()
	h.ServeAPI(rec, testutil.NewAdminRequest("/api/users?q=nobody"))

	if !strings.Contains(rec.Body.String(), `"users":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func detailRequest(id string) *http.Request {
	return testutil.WithChiURLParam(testutil.NewAdminRequest("/users/"+id), "id", id)
}

func TestServeDetail_Found(t *testing.T) {
	src := testutil.NewMemSource(testutil.With(
		testutil.LearnerDoc("u1", "Amit", "amit@example.com", "Fresher"),
		bson.M{
			"surveys": bson.M{
				"day1_feedback": bson.M{
					"rating":     4,
					"mostUseful": "<script>alert(1)</script>Live coding\nand Q&A",
				},
				"outcome_survey": "Role Switch",
			},
			"progress": bson.M{"completedSections": []interface{}{"Intro", "Day 1 Wrap-up"}},
			"stats":    bson.M{"totalCorrect": 10, "totalIncorrect": 2},
		},
	))
	h, rr := newTestHandler(src)

	rec := httptest.NewRecorder()
	h.ServeDetail(rec, detailRequest("u1"))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	page := rr.LastPage(t)
	if page.Name != "user_detail" {
		t.Fatalf("template = %q", page.Name)
	}
	data := page.Data.(detailData)
	b := data.Body
	if !b.Found || b.Name != "Amit" || data.Title != "Amit" {
		t.Fatalf("body = %+v", b)
	}
	if b.EventsURL != "/users/u1/events" {
		t.Errorf("events url = %q", b.EventsURL)
	}
	if b.Profile[3].Label != "Organization" || b.Profile[3].Value != notSet {
		t.Errorf("organization = %+v", b.Profile[3])
	}
	if b.Survey[0].Answer != "4 / 5" {
		t.Errorf("rating answer = %q", b.Survey[0].Answer)
	}
	useful := string(b.Survey[1].Answer)
	if strings.Contains(useful, "<script") || !strings.Contains(useful, "Live coding<br>and Q&amp;A") {
		t.Errorf("most useful = %q", useful)
	}
	if b.Survey[2].Answer != notAnswered {
		t.Errorf("needs improvement = %q", b.Survey[2].Answer)
	}
	if b.Survey[4].Answer != "Role Switch" {
		t.Errorf("outcome = %q", b.Survey[4].Answer)
	}
	if len(b.Sections) != 2 {
		t.Errorf("sections = %v", b.Sections)
	}
	if b.Performance[3].Value != "12 / 115" {
		t.Errorf("questions = %q", b.Performance[3].Value)
	}
}

func TestServeDetail_AdminDocumentIsViewable(t *testing.T) {
	h, rr := newTestHandler(sampleSource())

	h.ServeDetail(httptest.NewRecorder(), detailRequest("a1"))

	if b := rr.LastPage(t).Data.(detailData).Body; !b.Found || b.Name != "Admin" {
		t.Errorf("admin detail = %+v", b)
	}
}

func TestServeDetail_NotFound(t *testing.T) {
	h, rr := newTestHandler(sampleSource())

	rec := httptest.NewRecorder()
	h.ServeDetail(rec, detailRequest("missing"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	b := rr.LastPage(t).Data.(detailData).Body
	if b.Found || b.Error != "" {
		t.Errorf("body = %+v", b)
	}
}

func TestServeDetail_Error(t *testing.T) {
	src := testutil.NewMemSource()
	src.Fail(context.DeadlineExceeded)
	h, rr := newTestHandler(src)

	rec := httptest.NewRecorder()
	h.ServeDetail(rec, detailRequest("u1"))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if b := rr.LastPage(t).Data.(detailData).Body; b.Found || b.Error == "" {
		t.Errorf("body = %+v", b)
	}
}

func TestServeDetailEvents_Deleted(t *testing.T) {
	src := sampleSource()
	h, rr := newTestHandler(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := detailRequest("u3").WithContext(ctx)
	rec := testutil.NewStreamRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeDetailEvents(rec, testutil.WithChiURLParam(req, "id", "u3"))
	}()

	first := rr.WaitSnippets(t, 1)[0]
	if first.Name != "user_detail_body" || !first.Data.(detailBody).Found {
		t.Fatalf("first = %+v", first)
	}

	src.Set(testutil.LearnerDoc("u1", "zoe", "zoe@example.com", "Fresher"))
	if b := rr.WaitSnippets(t, 2)[1].Data.(detailBody); b.Found || b.Error != "" {
		t.Errorf("after delete = %+v", b)
	}

	cancel()
	<-done
	if !strings.Contains(rec.Body(), "event: user\ndata: snippet:user_detail_body") {
		t.Errorf("stream body = %q", rec.Body())
	}
}

func TestDisplay(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, "N/A"},
		{"   ", "N/A"},
		{"Acme", "Acme"},
		{true, "Yes"},
		{false, "No"},
		{int32(12), "12"},
		{2.5, "2.5"},
		{at, "Mar 1, 2024 09:30 UTC"},
	}
	for _, tt := range tests {
		if got := display(tt.in, notSet); got != tt.want {
			t.Errorf("display(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRatingAnswer(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, notAnswered},
		{0, notAnswered},
		{false, notAnswered},
		{"", notAnswered},
		{3, "3 / 5"},
		{int64(5), "5 / 5"},
		{"4", "4 / 5"},
	}
	for _, tt := range tests {
		if got := ratingAnswer(tt.in); got != tt.want {
			t.Errorf("ratingAnswer(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestServeDetail_EscapedID(t *testing.T) {
	const id = "grp/7?x#y%z"
	h, rr := newTestHandler(testutil.NewMemSource(
		testutil.LearnerDoc(id, "Odd Id", "odd@example.com", "Fresher"),
	))
	router := chi.NewRouter()
	router.Get("/users/{id}", h.ServeDetail)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAdminRequest("/users/"+url.PathEscape(id)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	b := rr.LastPage(t).Data.(detailData).Body
	if !b.Found || b.ID != id {
		t.Errorf("body = found %v id %q, want found id %q", b.Found, b.ID, id)
	}
	if want := "/users/grp%2F7%3Fx%23y%25z/events"; b.EventsURL != want {
		t.Errorf("EventsURL = %q, want %q", b.EventsURL, want)
	}
}

func TestListRow_DetailURL(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"u1", "/users/u1"},
		{"65f0c0ffee", "/users/65f0c0ffee"},
		{"a/b?c", "/users/a%2Fb%3Fc"},
	}
	for _, tt := range tests {
		if got := (listRow{Row: stats.Row{ID: tt.id}}).DetailURL(); got != tt.want {
			t.Errorf("DetailURL(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestUsersTable_EmptyAdvisory(t *testing.T) {
	tmpl := template.Must(template.ParseFS(resources.FS, "templates/*.gohtml"))
	template.Must(tmpl.ParseFS(FS, "templates/*.gohtml"))

	render := func(u listUpdate) string {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, "users_table", table(u, "")); err != nil {
			t.Fatalf("execute: %v", err)
		}
		return buf.String()
	}

	if got := render(listUpdate{}); !strings.Contains(got, "No users found. The collection is empty") {
		t.Errorf("empty snapshot rendered without advisory:\n%s", got)
	}
	one := listUpdate{docs: []models.UserDoc{testutil.LearnerDoc("u1", "Amit", "amit@example.com", "Fresher")}}
	if got := render(one); strings.Contains(got, "The collection is empty") {
		t.Error("advisory shown for a populated snapshot")
	}
}
