// internal/app/system/stats/rows.go
package stats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dalemusser/learnerdash/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Row is one line of the users table.
type Row struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	Profession         string   `json:"profession"`
	Badge              Badge    `json:"badge"`
	Rating             *float64 `json:"rating"`
	TotalPoints        int      `json:"totalPoints"`
	QuestionsCompleted int      `json:"questionsCompleted"`
}

// RatingText renders the rating, or "none".
func (r Row) RatingText() string {
	if r.Rating == nil {
		return "none"
	}
	return strconv.FormatFloat(*r.Rating, 'f', -1, 64)
}

// DeriveRow computes the list columns for one document.
func DeriveRow(d models.UserDoc) Row {
	row := Row{
		ID:                 d.ID,
		Name:               d.Name(),
		Email:              d.Email(),
		Profession:         d.String("profile.profession"),
		TotalPoints:        d.Int("stats.totalPoints"),
		QuestionsCompleted: QuestionsCompleted(d),
	}
	row.Badge = BadgeFor(row.Profession)
	if r, ok := Rating(d); ok {
		row.Rating = &r
	}
	return row
}

// DeriveRows maps DeriveRow over a snapshot.
func DeriveRows(docs []models.UserDoc) []Row {
	out := make([]Row, len(docs))
	for i, d := range docs {
		out[i] = DeriveRow(d)
	}
	return out
}

// Filter keeps rows whose name, email or profession contains the query.
// Matching is on folded text, so case and accents are ignored. A blank
// query keeps everything.
func Filter(rows []Row, query string) []Row {
	q := text.Fold(strings.TrimSpace(query))
	if q == "" {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(text.Fold(r.Name), q) ||
			strings.Contains(text.Fold(r.Email), q) ||
			strings.Contains(text.Fold(r.Profession), q) {
			out = append(out, r)
		}
	}
	return out
}

// SortByName orders rows by name, ascending and case-insensitive, in place.
func SortByName(rows []Row) {
	coll := newNameCollator()
	sort.SliceStable(rows, func(i, j int) bool {
		if c := coll.CompareString(rows[i].Name, rows[j].Name); c != 0 {
			return c < 0
		}
		return rows[i].ID < rows[j].ID
	})
}

// Collators are not safe for concurrent use; callers build one per sort.
func newNameCollator() *collate.Collator {
	return collate.New(language.English, collate.IgnoreCase)
}
