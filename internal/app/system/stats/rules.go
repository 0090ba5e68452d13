// internal/app/system/stats/rules.go
package stats

import (
	"strings"
	"time"

	"github.com/dalemusser/learnerdash/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Matcher is a single piece of evidence looked for in a document.
type Matcher func(d models.UserDoc) bool

// Rule is a named Matcher. Rule sets are plain slices so that detection
// stays data-driven and every rule can be exercised on its own.
type Rule struct {
	Name  string
	Match Matcher
}

// Match evaluates rules in order and returns the name of the first rule
// that matched.
func Match(rules []Rule, d models.UserDoc) (string, bool) {
	for _, r := range rules {
		if r.Match(d) {
			return r.Name, true
		}
	}
	return "", false
}

// MatchAll returns the names of every rule that matched, in rule order.
func MatchAll(rules []Rule, d models.UserDoc) []string {
	var out []string
	for _, r := range rules {
		if r.Match(d) {
			out = append(out, r.Name)
		}
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| Rule constructors                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// Scope names a map inside the document whose keys are inspected by the
// key-based rules. The empty path is the top level of the document.
type Scope string

const (
	ScopeTop      Scope = ""
	ScopeProgress Scope = "progress"
)

func scopeMap(d models.UserDoc, s Scope) (bson.M, bool) {
	if s == ScopeTop {
		return d.Fields, d.Fields != nil
	}
	return d.Map(string(s))
}

// FieldTruthy matches when the value at path is truthy.
func FieldTruthy(path string) Matcher {
	return func(d models.UserDoc) bool {
		v, ok := d.Value(path)
		return ok && Truthy(v)
	}
}

// KeyPrefixTruthy matches when a key in any of the scopes starts with
// prefix (case-insensitive) and holds a truthy value.
func KeyPrefixTruthy(prefix string, scopes ...Scope) Matcher {
	prefix = strings.ToLower(prefix)
	return keyTruthy(func(k string) bool { return strings.HasPrefix(k, prefix) }, scopes)
}

// KeyContainsTruthy matches when a key in any of the scopes contains every
// one of parts (case-insensitive) and holds a truthy value.
func KeyContainsTruthy(parts []string, scopes ...Scope) Matcher {
	return keyTruthy(containsAllFn(parts), scopes)
}

func keyTruthy(keyOK func(lowerKey string) bool, scopes []Scope) Matcher {
	return func(d models.UserDoc) bool {
		for _, s := range scopes {
			m, ok := scopeMap(d, s)
			if !ok {
				continue
			}
			for k, v := range m {
				if keyOK(strings.ToLower(k)) && Truthy(v) {
					return true
				}
			}
		}
		return false
	}
}

// NestedFlag matches when a key in any of the scopes contains keyPart
// (case-insensitive), holds an embedded document, and that document has
// one of props set to a truthy value.
func NestedFlag(keyPart string, props []string, scopes ...Scope) Matcher {
	keyPart = strings.ToLower(keyPart)
	return func(d models.UserDoc) bool {
		for _, s := range scopes {
			m, ok := scopeMap(d, s)
			if !ok {
				continue
			}
			for k, v := range m {
				if !strings.Contains(strings.ToLower(k), keyPart) {
					continue
				}
				inner, ok := models.ToMap(v)
				if !ok {
					continue
				}
				for _, p := range props {
					if Truthy(inner[p]) {
						return true
					}
				}
			}
		}
		return false
	}
}

// SectionContains matches when any progress.completedSections entry,
// lower-cased, contains one of the given substrings.
func SectionContains(subs ...string) Matcher {
	return func(d models.UserDoc) bool {
		for _, sec := range d.Strings("progress.completedSections") {
			s := strings.ToLower(sec)
			for _, sub := range subs {
				if strings.Contains(s, sub) {
					return true
				}
			}
		}
		return false
	}
}

// SectionContainsEach matches when a single completed section contains at
// least one substring from every group.
func SectionContainsEach(groups ...[]string) Matcher {
	return func(d models.UserDoc) bool {
		for _, sec := range d.Strings("progress.completedSections") {
			s := strings.ToLower(sec)
			if containsOneOfEach(s, groups) {
				return true
			}
		}
		return false
	}
}

// BoolFlag matches when the value at path is the boolean true.
func BoolFlag(path string) Matcher {
	return func(d models.UserDoc) bool {
		v, ok := d.Value(path)
		if !ok {
			return false
		}
		b, isBool := v.(bool)
		return isBool && b
	}
}

// Exists matches when path is present with a non-null value.
func Exists(path string) Matcher {
	return func(d models.UserDoc) bool {
		_, ok := d.Value(path)
		return ok
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Truthiness                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// falseWords are string values treated as "not set" by Truthy.
var falseWords = map[string]struct{}{
	"false": {}, "no": {}, "0": {}, "null": {}, "none": {}, "n/a": {},
}

// Truthy reports whether v counts as evidence: true booleans, non-empty
// strings other than the false words, non-empty documents and arrays,
// non-zero numbers and any timestamp.
func Truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if s == "" {
			return false
		}
		_, isFalse := falseWords[s]
		return !isFalse
	case time.Time:
		return !x.IsZero()
	case primitive.DateTime, primitive.Timestamp:
		return true
	case primitive.ObjectID:
		return !x.IsZero()
	case primitive.Null, primitive.Undefined:
		return false
	}
	if n, ok := models.ToNumber(v); ok {
		return n != 0
	}
	if m, ok := models.ToMap(v); ok {
		return len(m) > 0
	}
	if a, ok := models.ToSlice(v); ok {
		return len(a) > 0
	}
	return true
}

func containsAllFn(parts []string) func(string) bool {
	lower := make([]string, len(parts))
	for i, p := range parts {
		lower[i] = strings.ToLower(p)
	}
	return func(s string) bool {
		for _, p := range lower {
			if !strings.Contains(s, p) {
				return false
			}
		}
		return true
	}
}

func containsOneOfEach(s string, groups [][]string) bool {
	for _, g := range groups {
		found := false
		for _, sub := range g {
			if strings.Contains(s, sub) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
