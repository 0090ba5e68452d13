package home_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/learnerdash/internal/app/features/home"
	"github.com/dalemusser/learnerdash/internal/app/system/auth"
	"github.com/dalemusser/learnerdash/internal/testutil"
	"go.uber.org/zap"
)

func TestServeRoot(t *testing.T) {
	tests := []struct {
		name string
		user *auth.SessionUser
		want string
	}{
		{"anonymous", nil, "/login"},
		{"learner", testutil.LearnerUser(), "/forbidden"},
		{"admin", testutil.AdminUser(), "/dashboard"},
	}
	h := home.NewHandler(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.user != nil {
				req = testutil.WithUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeRoot(rec, req)

			if rec.Code != http.StatusSeeOther {
				t.Errorf("status: got %d, want 303", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != tt.want {
				t.Errorf("Location: got %q, want %q", loc, tt.want)
			}
		})
	}
}
