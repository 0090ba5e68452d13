// internal/app/features/users/detail.go
package users

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/learnerdash/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
	"github.com/dalemusser/learnerdash/internal/app/system/sse"
	"github.com/dalemusser/learnerdash/internal/app/system/stats"
	"github.com/dalemusser/learnerdash/internal/app/system/timeouts"
	"github.com/dalemusser/learnerdash/internal/app/system/viewdata"
	"github.com/dalemusser/learnerdash/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	notAnswered = "Not answered"
	notSet      = "N/A"
)

type detailData struct {
	viewdata.BaseVM
	Body detailBody
}

// detailBody is the live region of the detail page.
type detailBody struct {
	ID        string
	EventsURL string
	Found     bool
	Error     string
	Updated   string

	Name        string
	Profile     []field
	Survey      []answer
	Sections    []string
	Performance []field
	Progress    []check
	Evidence    stats.Evidence
}

type field struct {
	Label string
	Value string
}

type answer struct {
	Question string
	Answer   template.HTML
}

type check struct {
	Label string
	Done  bool
}

// display renders a loosely typed value, or def when it is absent or empty.
func display(v interface{}, def string) string {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		if strings.TrimSpace(x) == "" {
			return def
		}
		return x
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case time.Time:
		return x.UTC().Format("Jan 2, 2006 15:04 UTC")
	}
	if n, ok := models.ToNumber(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func value(d models.UserDoc, path string) interface{} {
	v, _ := d.Value(path)
	return v
}

func safe(s string) template.HTML { return htmlsanitize.PrepareForDisplay(s) }

// ratingAnswer is "N / 5". Zero, blank and false count as unanswered.
func ratingAnswer(v interface{}) string {
	if n, ok := models.ToNumber(v); ok {
		if n == 0 {
			return notAnswered
		}
		return strconv.FormatFloat(n, 'f', -1, 64) + " / 5"
	}
	if b, ok := v.(bool); ok && !b {
		return notAnswered
	}
	s := display(v, "")
	if s == "" {
		return notAnswered
	}
	return s + " / 5"
}

func detail(id string, u docUpdate) detailBody {
	b := detailBody{ID: id, EventsURL: "/users/" + url.PathEscape(id) + "/events", Updated: stamp(u.at)}
	if u.err != nil {
		b.Error = u.err.Message()
		return b
	}
	if !u.exists {
		return b
	}
	d := u.doc
	b.Found = true
	b.Name = display(d.Name(), "Unknown")

	b.Profile = []field{
		{"Name", display(value(d, "name"), notSet)},
		{"Email", display(value(d, "email"), notSet)},
		{"Profession", display(value(d, "profile.profession"), notSet)},
		{"Organization", display(value(d, "profile.organization"), notSet)},
		{"Department", display(value(d, "profile.department"), notSet)},
		{"CTC", display(value(d, "profile.ctc"), notSet)},
	}

	b.Survey = []answer{
		{"How would you rate the session?", safe(ratingAnswer(value(d, "surveys.day1_feedback.rating")))},
		{"What was most useful?", safe(display(value(d, "surveys.day1_feedback.mostUseful"), notAnswered))},
		{"What needs improvement?", safe(display(value(d, "surveys.day1_feedback.needsImprovement"), notAnswered))},
		{"Are you interested in paid courses?", safe(display(value(d, "surveys.day1_feedback.interestedInPaid"), notAnswered))},
		{"Expected Outcome?", safe(display(value(d, "surveys.outcome_survey"), notAnswered))},
	}

	b.Sections = d.Strings("progress.completedSections")

	b.Performance = []field{
		{"Total Correct", strconv.Itoa(d.Int("stats.totalCorrect"))},
		{"Total Incorrect", strconv.Itoa(d.Int("stats.totalIncorrect"))},
		{"Total Points", strconv.Itoa(d.Int("stats.totalPoints"))},
		{"Questions Completed", fmt.Sprintf("%d / %d", stats.QuestionsCompleted(d), stats.MaxQuestions)},
	}

	b.Progress = []check{
		{"Day 1 complete", stats.Day1Complete(d)},
		{"Day 2 complete", stats.Day2Complete(d)},
		{"Full course complete", stats.FullCourseComplete(d)},
		{"Certificate issued", stats.HasCertificate(d)},
		{"Certificate downloaded", stats.HasCertificateDownloaded(d)},
	}
	b.Evidence = stats.CollectEvidence(d)
	return b
}

// routeID returns the {id} path segment decoded. chi matches on RawPath when
// the request carries escaped characters, so the param is still escaped then.
func routeID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id
	}
	if dec, err := url.PathUnescape(id); err == nil {
		return dec
	}
	return id
}

// ServeDetail handles GET /users/{id}. No role check is applied to the
// record itself: admin documents are viewable like any other.
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	id := routeID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "user detail")
	defer cancel()

	doc, ok, fe := h.Feed.LoadDocument(ctx, h.Collection, id)
	body := detail(id, docUpdate{doc: doc, exists: ok, at: time.Now(), err: fe})

	title := "User Details"
	if body.Found {
		title = body.Name
	} else if body.Error == "" {
		w.WriteHeader(http.StatusNotFound)
	}
	data := detailData{
		BaseVM: viewdata.NewBaseVM(r, title, "/users"),
		Body:   body,
	}
	h.Render.Page(w, r, "user_detail", data)
}

// ServeDetailEvents handles GET /users/{id}/events with a document-level
// subscription. A deleted document renders the not-found panel.
func (h *Handler) ServeDetailEvents(w http.ResponseWriter, r *http.Request) {
	id := routeID(r)
	stream, err := sse.Start(w)
	if err != nil {
		h.Log.Error("user detail stream", zap.Error(err))
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	box := livefeed.NewLatest[docUpdate]()
	sub := h.Feed.SubscribeDocument(r.Context(), h.Collection, id,
		func(s livefeed.DocSnapshot) { box.Put(docUpdate{doc: s.Doc, exists: s.Exists, at: s.At}) },
		func(fe *livefeed.FeedError) { box.Put(docUpdate{err: fe}) },
	)
	defer sub.Cancel()

	err = sse.Relay(r.Context(), stream, box, h.Heartbeat, func(u docUpdate) (bool, error) {
		html := sse.Capture(func(w http.ResponseWriter) {
			h.Render.Snippet(w, "user_detail_body", detail(id, u))
		})
		return false, stream.Event("user", html)
	})
	if err != nil {
		h.Log.Debug("user detail stream closed", zap.String("subscription", sub.ID), zap.Error(err))
	}
}
