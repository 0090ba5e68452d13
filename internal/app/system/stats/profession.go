// internal/app/system/stats/profession.go
package stats

import "strings"

// ProfessionClass is the aggregate bucket for profile.profession.
type ProfessionClass int

const (
	ProfessionUncounted ProfessionClass = iota
	ProfessionFresher
	ProfessionWorking
)

// ClassifyProfession buckets a profession for the dashboard counters.
func ClassifyProfession(p string) ProfessionClass {
	p = strings.ToLower(strings.TrimSpace(p))
	switch {
	case p == "" || p == "n/a":
		return ProfessionUncounted
	case strings.Contains(p, "fresher"),
		strings.Contains(p, "student"),
		strings.Contains(p, "graduate"):
		return ProfessionFresher
	default:
		return ProfessionWorking
	}
}

// Badge is the list view's profession category.
type Badge string

const (
	BadgeFresher      Badge = "fresher"
	BadgeProfessional Badge = "professional"
	BadgeOther        Badge = "other"
	BadgeNeutral      Badge = "neutral"
)

// BadgeFor derives the list badge. Its substring rules differ from
// ClassifyProfession: "graduate" is not a fresher marker here.
func BadgeFor(p string) Badge {
	p = strings.ToLower(strings.TrimSpace(p))
	switch {
	case p == "" || p == "n/a":
		return BadgeNeutral
	case strings.Contains(p, "fresher"), strings.Contains(p, "student"):
		return BadgeFresher
	case strings.Contains(p, "professional"), strings.Contains(p, "working"):
		return BadgeProfessional
	default:
		return BadgeOther
	}
}

// Label is the badge text.
func (b Badge) Label() string {
	switch b {
	case BadgeFresher:
		return "Fresher"
	case BadgeProfessional:
		return "Professional"
	case BadgeOther:
		return "Other"
	default:
		return "N/A"
	}
}
