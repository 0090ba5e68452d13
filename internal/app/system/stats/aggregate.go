// internal/app/system/stats/aggregate.go
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/learnerdash/internal/domain/models"
)

// MaxQuestions caps questionsCompleted. The course has this many quiz
// questions; the rest of the tally comes from survey-only questions.
const MaxQuestions = 115

// HistogramDays is the length of the daily login histogram.
const HistogramDays = 30

// Stats are the participant counters shown on the dashboard cards.
type Stats struct {
	TotalUsers                 int     `json:"totalUsers"`
	Freshers                   int     `json:"freshers"`
	WorkingProfessionals       int     `json:"workingProfessionals"`
	AverageRating              float64 `json:"averageRating"`
	RoleSwitchCount            int     `json:"roleSwitchCount"`
	FullCourseCompleted        int     `json:"fullCourseCompleted"`
	CertificateCount           int     `json:"certificateCount"`
	CertificateDownloadedCount int     `json:"certificateDownloadedCount"`
}

// FullCourseUser is one row of the completers table.
type FullCourseUser struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	QuestionsCompleted int    `json:"questionsCompleted"`
}

// DayCount is one bucket of the daily login histogram.
type DayCount struct {
	Date        string `json:"date"`
	Count       int    `json:"count"`
	DisplayDate string `json:"displayDate"`
}

// Result is everything the dashboard renders for one snapshot.
type Result struct {
	Stats           Stats            `json:"stats"`
	FullCourseUsers []FullCourseUser `json:"fullCourseUsers"`
	DailyLogins     []DayCount       `json:"dailyLogins"`
	RatingCount     int              `json:"ratingCount"`
	DocumentCount   int              `json:"documentCount"`
}

// Compute aggregates a full snapshot. It never fails: missing or malformed
// fields count as absent. now fixes the last day of the histogram.
func Compute(docs []models.UserDoc, now time.Time) Result {
	var (
		st          Stats
		ratingSum   float64
		ratingCount int
		completers  []FullCourseUser
		byDay       = map[string]int{}
	)

	for _, d := range docs {
		if d.IsAdmin() {
			continue
		}
		st.TotalUsers++

		switch ClassifyProfession(d.String("profile.profession")) {
		case ProfessionFresher:
			st.Freshers++
		case ProfessionWorking:
			st.WorkingProfessionals++
		}

		if r, ok := Rating(d); ok {
			ratingSum += r
			ratingCount++
		}

		if IsRoleSwitch(d) {
			st.RoleSwitchCount++
		}

		cert := HasCertificate(d)
		if cert {
			st.CertificateCount++
		}
		if HasCertificateDownloaded(d) {
			st.CertificateDownloadedCount++
		}

		if cert || (Day1Complete(d) && Day2Complete(d)) {
			st.FullCourseCompleted++
			completers = append(completers, FullCourseUser{
				ID:                 d.ID,
				Name:               orDefault(d.Name(), "Unknown"),
				Email:              orDefault(d.Email(), "No email"),
				QuestionsCompleted: QuestionsCompleted(d),
			})
		}

		if src := ResolveDate(d); src.Valid() {
			byDay[src.Time.Format(dayLayout)]++
		}
	}

	if ratingCount > 0 {
		st.AverageRating = math.Round(ratingSum/float64(ratingCount)*100) / 100
	}

	rankCompleters(completers)
	if completers == nil {
		completers = []FullCourseUser{}
	}

	return Result{
		Stats:           st,
		FullCourseUsers: completers,
		DailyLogins:     histogram(byDay, now),
		RatingCount:     ratingCount,
		DocumentCount:   len(docs),
	}
}

const dayLayout = "2006-01-02"

// histogram produces HistogramDays buckets ending on now's UTC day.
func histogram(byDay map[string]int, now time.Time) []DayCount {
	end := now.UTC()
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]DayCount, HistogramDays)
	for i := 0; i < HistogramDays; i++ {
		day := end.AddDate(0, 0, i-(HistogramDays-1))
		key := day.Format(dayLayout)
		out[i] = DayCount{Date: key, Count: byDay[key], DisplayDate: day.Format("Jan 2")}
	}
	return out
}

func rankCompleters(us []FullCourseUser) {
	coll := newNameCollator()
	sort.SliceStable(us, func(i, j int) bool {
		a, b := us[i], us[j]
		if a.QuestionsCompleted != b.QuestionsCompleted {
			return a.QuestionsCompleted > b.QuestionsCompleted
		}
		if c := coll.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

// Rating returns surveys.day1_feedback.rating when it is a number in [1,5].
func Rating(d models.UserDoc) (float64, bool) {
	r, ok := d.Number("surveys.day1_feedback.rating")
	if !ok || math.IsNaN(r) || r < 1 || r > 5 {
		return 0, false
	}
	return r, true
}

// IsRoleSwitch reports an outcome survey of "role switch".
func IsRoleSwitch(d models.UserDoc) bool {
	return strings.EqualFold(strings.TrimSpace(d.String("surveys.outcome_survey")), "role switch")
}

// QuestionsCompleted is totalCorrect+totalIncorrect clamped to [0, MaxQuestions].
// The sum is taken in float64 so huge stored counts clamp instead of wrapping.
func QuestionsCompleted(d models.UserDoc) int {
	c, _ := d.Number("stats.totalCorrect")
	i, _ := d.Number("stats.totalIncorrect")
	n := math.Trunc(c) + math.Trunc(i)
	switch {
	case math.IsNaN(n) || n < 0:
		return 0
	case n > MaxQuestions:
		return MaxQuestions
	}
	return int(n)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

/*─────────────────────────────────────────────────────────────────────────────*
| Presentation helpers                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Empty reports a snapshot with no documents at all.
func (r Result) Empty() bool { return r.DocumentCount == 0 }

// Percent is n as a rounded share of TotalUsers.
func (r Result) Percent(n int) int {
	if r.Stats.TotalUsers == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(r.Stats.TotalUsers) * 100))
}

// RoleSwitchOthers is the remainder slice of the outcome chart.
func (r Result) RoleSwitchOthers() int {
	if o := r.Stats.TotalUsers - r.Stats.RoleSwitchCount; o > 0 {
		return o
	}
	return 0
}

// ProfessionUnknown is the remainder slice of the profession chart.
func (r Result) ProfessionUnknown() int {
	if o := r.Stats.TotalUsers - r.Stats.Freshers - r.Stats.WorkingProfessionals; o > 0 {
		return o
	}
	return 0
}

// AverageRatingText renders the average with two decimals.
func (r Result) AverageRatingText() string {
	return fmt.Sprintf("%.2f", r.Stats.AverageRating)
}

// Stars is the average rounded to whole stars for the card.
func (r Result) Stars() int {
	return int(math.Round(r.Stats.AverageRating))
}

// LoginLabels and LoginCounts feed the bar chart.
func (r Result) LoginLabels() []string {
	out := make([]string, len(r.DailyLogins))
	for i, d := range r.DailyLogins {
		out[i] = d.DisplayDate
	}
	return out
}

func (r Result) LoginCounts() []int {
	out := make([]int, len(r.DailyLogins))
	for i, d := range r.DailyLogins {
		out[i] = d.Count
	}
	return out
}
