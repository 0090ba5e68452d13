// Package htmlsanitize cleans free text taken from user documents (survey
// answers, profile fields) before it is rendered.
//
// Survey answers are plain text, but nothing stops the course platform from
// storing markup in them. The strict bluemonday policy strips every tag;
// line breaks are then turned into <br> so multi-line answers keep their
// shape.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func strict() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// StripTags removes all markup and returns plain text with entities decoded.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strict().Sanitize(s))
}

// IsPlainText reports whether s contains no tag-like sequences.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<") || !strings.Contains(s, ">")
}

// PlainTextToHTML escapes s and converts newlines to <br>.
func PlainTextToHTML(s string) template.HTML {
	if s == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// PrepareForDisplay renders a free-text answer as safe HTML.
func PrepareForDisplay(s string) template.HTML {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !IsPlainText(s) {
		s = StripTags(s)
	}
	return PlainTextToHTML(s)
}
