package models

import (
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestUserDoc_Int(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		want int
	}{
		{"int32", int32(7), 7},
		{"float truncated", 7.9, 7},
		{"huge float saturates", 1e300, math.MaxInt},
		{"huge negative saturates", -1e300, math.MinInt},
		{"nan", math.NaN(), 0},
		{"string ignored", "7", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := UserDoc{Fields: bson.M{"stats": bson.M{"n": tt.v}}}
			if got := d.Int("stats.n"); got != tt.want {
				t.Errorf("Int = %d, want %d", got, tt.want)
			}
		})
	}
	if got := (UserDoc{}).Int("stats.n"); got != 0 {
		t.Errorf("absent: Int = %d, want 0", got)
	}
}
