// internal/app/system/stats/detect.go
package stats

import (
	"fmt"

	"github.com/dalemusser/learnerdash/internal/domain/models"
)

// Certificate evidence. Certificate fields were added to the users
// collection by several generations of the course platform under
// different names, so detection is a permissive OR over every known shape.
var CertificateRules = []Rule{
	{Name: "certificate-field", Match: KeyPrefixTruthy("certificate", ScopeTop, ScopeProgress)},
	{Name: "cert-key", Match: KeyContainsTruthy([]string{"cert"}, ScopeTop, ScopeProgress)},
	{Name: "cert-section", Match: SectionContains("cert", "certified")},
}

// downloadProps are the properties of a nested certificate document that
// record a download.
var downloadProps = []string{"downloaded", "downloadedAt", "isDownloaded"}

// CertificateDownloadRules require evidence that references both the
// certificate and a download.
var CertificateDownloadRules = []Rule{
	{Name: "cert-download-key", Match: KeyContainsTruthy([]string{"cert", "download"}, ScopeTop, ScopeProgress)},
	{Name: "certificate-object-downloaded", Match: NestedFlag("cert", downloadProps, ScopeTop, ScopeProgress)},
	{Name: "cert-download-section", Match: SectionContainsEach([]string{"cert", "certificate"}, []string{"download", "downloaded"})},
}

// Day1Rules and Day2Rules decide whether a course day was completed.
var (
	Day1Rules = dayRules(1)
	Day2Rules = dayRules(2)
)

func dayRules(n int) []Rule {
	return []Rule{
		{Name: fmt.Sprintf("day%d-section", n), Match: SectionContains(
			fmt.Sprintf("day%d", n),
			fmt.Sprintf("day %d", n),
			fmt.Sprintf("day-%d", n),
			fmt.Sprintf("day_%d", n),
		)},
		{Name: fmt.Sprintf("day%d-flag", n), Match: anyOf(
			BoolFlag(fmt.Sprintf("day%dCompleted", n)),
			BoolFlag(fmt.Sprintf("progress.day%dCompleted", n)),
			BoolFlag(fmt.Sprintf("completed.day%d", n)),
		)},
		{Name: fmt.Sprintf("day%d-feedback", n), Match: Exists(fmt.Sprintf("surveys.day%d_feedback", n))},
	}
}

func anyOf(ms ...Matcher) Matcher {
	return func(d models.UserDoc) bool {
		for _, m := range ms {
			if m(d) {
				return true
			}
		}
		return false
	}
}

// HasCertificate reports certificate evidence anywhere in the document.
func HasCertificate(d models.UserDoc) bool {
	_, ok := Match(CertificateRules, d)
	return ok
}

// HasCertificateDownloaded reports evidence of a certificate download.
func HasCertificateDownloaded(d models.UserDoc) bool {
	_, ok := Match(CertificateDownloadRules, d)
	return ok
}

// Day1Complete reports whether day 1 of the course was completed.
func Day1Complete(d models.UserDoc) bool {
	_, ok := Match(Day1Rules, d)
	return ok
}

// Day2Complete reports whether day 2 of the course was completed.
func Day2Complete(d models.UserDoc) bool {
	_, ok := Match(Day2Rules, d)
	return ok
}

// FullCourseComplete is a certificate, or both course days.
func FullCourseComplete(d models.UserDoc) bool {
	return HasCertificate(d) || (Day1Complete(d) && Day2Complete(d))
}

// Evidence lists every matched rule name for display on the detail page.
type Evidence struct {
	Certificate []string
	Download    []string
	Day1        []string
	Day2        []string
}

// CollectEvidence evaluates every rule set against d.
func CollectEvidence(d models.UserDoc) Evidence {
	return Evidence{
		Certificate: MatchAll(CertificateRules, d),
		Download:    MatchAll(CertificateDownloadRules, d),
		Day1:        MatchAll(Day1Rules, d),
		Day2:        MatchAll(Day2Rules, d),
	}
}
