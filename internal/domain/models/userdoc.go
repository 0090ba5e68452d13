// internal/domain/models/userdoc.go
package models

import (
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserDoc is one document of the externally owned users collection.
//
// The collection is loosely schematized (fields come and go as the course
// platform evolves), so the document is kept as a generic map and read
// through path accessors that never fail. Absent or mistyped values yield
// the zero value and ok=false.
//
// Known paths:
//   - name, email
//   - profile.role, profile.profession, profile.organization,
//     profile.department, profile.ctc
//   - surveys.day1_feedback.{rating,mostUseful,needsImprovement,interestedInPaid}
//   - surveys.outcome_survey
//   - progress.completedSections
//   - stats.totalCorrect, stats.totalIncorrect, stats.totalPoints
type UserDoc struct {
	ID     string `json:"id"`
	Fields bson.M `json:"fields"`
}

// NewUserDoc builds a UserDoc from a raw decoded document. The _id field is
// lifted into ID and removed from Fields.
func NewUserDoc(raw bson.M) UserDoc {
	fields := make(bson.M, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = v
	}
	return UserDoc{ID: DocID(raw["_id"]), Fields: fields}
}

// DocID renders a document identifier as a string. ObjectIDs use their hex
// form, strings are returned as-is.
func DocID(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

// Value resolves a dotted path ("surveys.day1_feedback.rating").
func (d UserDoc) Value(path string) (interface{}, bool) {
	var cur interface{} = d.Fields
	for _, part := range strings.Split(path, ".") {
		m, ok := ToMap(cur)
		if !ok {
			return nil, false
		}
		v, found := m[part]
		if !found {
			return nil, false
		}
		cur = v
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// String returns the string at path, or "" when absent or not a string.
func (d UserDoc) String(path string) string {
	v, ok := d.Value(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Number returns the numeric value at path. Only BSON numeric types count;
// numeric-looking strings do not.
func (d UserDoc) Number(path string) (float64, bool) {
	v, ok := d.Value(path)
	if !ok {
		return 0, false
	}
	return ToNumber(v)
}

// Int returns the numeric value at path truncated to an int, or 0.
// Values beyond the int range saturate.
func (d UserDoc) Int(path string) int {
	n, ok := d.Number(path)
	if !ok || math.IsNaN(n) {
		return 0
	}
	switch {
	case n >= math.MaxInt:
		return math.MaxInt
	case n <= math.MinInt:
		return math.MinInt
	}
	return int(n)
}

// Map returns the embedded document at path.
func (d UserDoc) Map(path string) (bson.M, bool) {
	v, ok := d.Value(path)
	if !ok {
		return nil, false
	}
	return ToMap(v)
}

// Strings returns the string elements of the array at path. Non-string
// elements are skipped.
func (d UserDoc) Strings(path string) []string {
	v, ok := d.Value(path)
	if !ok {
		return nil
	}
	items, ok := ToSlice(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Name returns the top-level name field.
func (d UserDoc) Name() string { return d.String("name") }

// Email returns the top-level email field.
func (d UserDoc) Email() string { return d.String("email") }

// Role returns profile.role as stored (no normalization).
func (d UserDoc) Role() string { return d.String("profile.role") }

// IsAdmin reports whether profile.role is exactly "admin".
func (d UserDoc) IsAdmin() bool { return d.Role() == RoleAdmin }

// RoleAdmin is the profile.role value that marks dashboard operators.
const RoleAdmin = "admin"

// ToMap converts the document shapes the driver may produce into bson.M.
func ToMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return bson.M(m), true
	case primitive.D:
		out := make(bson.M, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	default:
		return nil, false
	}
}

// ToSlice converts BSON arrays into a plain slice.
func ToSlice(v interface{}) ([]interface{}, bool) {
	switch a := v.(type) {
	case primitive.A:
		return []interface{}(a), true
	case []interface{}:
		return a, true
	case []string:
		out := make([]interface{}, len(a))
		for i, s := range a {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// ToNumber converts BSON numeric types into float64.
func ToNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
