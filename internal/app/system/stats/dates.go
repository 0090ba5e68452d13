// internal/app/system/stats/dates.go
package stats

import (
	"strings"
	"time"

	"github.com/dalemusser/learnerdash/internal/domain/models"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateKind tags how a DateSource was resolved.
type DateKind int

const (
	Absent DateKind = iota
	Native
	EpochSeconds
	Parsed
)

func (k DateKind) String() string {
	switch k {
	case Native:
		return "native"
	case EpochSeconds:
		return "epoch_seconds"
	case Parsed:
		return "parsed"
	default:
		return "absent"
	}
}

// DateSource is a normalized representative date for a document.
type DateSource struct {
	Kind  DateKind
	Field string
	Time  time.Time
}

// Valid reports whether a date was resolved.
func (s DateSource) Valid() bool { return s.Kind != Absent }

// DateFields are tried in order; creation fields win over login fields.
var DateFields = []string{
	"createdAt", "created_at", "registrationDate", "registration_date",
	"lastLogin", "last_login", "lastSeen", "last_seen",
}

// extraLayouts cover shapes cast.ToTimeE does not accept.
var extraLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/01/02",
	"1/2/2006",
	"Mon Jan 2 2006 15:04:05 GMT-0700",
	"Mon Jan 2 2006",
}

// ResolveDate returns the first date field of d that normalizes to a time.
func ResolveDate(d models.UserDoc) DateSource {
	for _, f := range DateFields {
		v, ok := d.Value(f)
		if !ok {
			continue
		}
		if src := NormalizeDate(v); src.Valid() {
			src.Field = f
			return src
		}
	}
	return DateSource{}
}

// NormalizeDate interprets one stored value as a date.
func NormalizeDate(v interface{}) DateSource {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return DateSource{}
		}
		return DateSource{Kind: Native, Time: x.UTC()}
	case primitive.DateTime:
		return DateSource{Kind: Native, Time: x.Time().UTC()}
	case primitive.Timestamp:
		return DateSource{Kind: Native, Time: time.Unix(int64(x.T), 0).UTC()}
	case string:
		return parseDateString(x)
	}

	if m, ok := models.ToMap(v); ok {
		secs, ok := models.ToNumber(m["seconds"])
		if !ok {
			secs, ok = models.ToNumber(m["_seconds"])
		}
		if !ok {
			return DateSource{}
		}
		nanos, _ := models.ToNumber(m["nanoseconds"])
		if nanos == 0 {
			nanos, _ = models.ToNumber(m["_nanoseconds"])
		}
		return DateSource{Kind: EpochSeconds, Time: time.Unix(int64(secs), int64(nanos)).UTC()}
	}

	// Bare numbers are epoch milliseconds.
	if n, ok := models.ToNumber(v); ok && n > 0 {
		return DateSource{Kind: Parsed, Time: time.UnixMilli(int64(n)).UTC()}
	}
	return DateSource{}
}

func parseDateString(s string) DateSource {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateSource{}
	}
	// Browser toString output ends with a zone name: "... GMT+0530 (India Standard Time)".
	if strings.HasSuffix(s, ")") {
		if i := strings.LastIndex(s, " ("); i > 0 {
			s = s[:i]
		}
	}
	if t, err := cast.ToTimeE(s); err == nil && !t.IsZero() {
		return DateSource{Kind: Parsed, Time: t.UTC()}
	}
	for _, layout := range extraLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateSource{Kind: Parsed, Time: t.UTC()}
		}
	}
	return DateSource{}
}
