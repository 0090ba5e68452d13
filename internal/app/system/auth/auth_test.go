package auth_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/learnerdash/internal/app/system/auth"
	"github.com/dalemusser/learnerdash/internal/app/system/guard"
	"github.com/dalemusser/learnerdash/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

// fakeChecker admits the uids in admins and counts calls.
type fakeChecker struct {
	admins map[string]bool
	calls  int
}

func (f *fakeChecker) Check(_ context.Context, p *guard.Principal) guard.Result {
	f.calls++
	if p == nil {
		return guard.Result{}
	}
	doc := models.NewUserDoc(bson.M{"_id": p.UID, "name": "Doc Name"})
	return guard.Result{IsAdmin: f.admins[p.UID], User: &guard.AdminUser{Principal: *p, Doc: doc}}
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_RejectsEmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty session key")
	}
}

func TestDeriveKeys_DeterministicAndDistinct(t *testing.T) {
	h1, b1, err := auth.DeriveKeys("a-secret")
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}
	h2, b2, _ := auth.DeriveKeys("a-secret")
	if !bytes.Equal(h1, h2) || !bytes.Equal(b1, b2) {
		t.Error("keys differ for the same secret")
	}
	if len(h1) != 64 || len(b1) != 32 {
		t.Errorf("key lengths = %d/%d, want 64/32", len(h1), len(b1))
	}
	h3, _, _ := auth.DeriveKeys("other-secret")
	if bytes.Equal(h1, h3) {
		t.Error("different secrets produced the same key")
	}
}

func TestRequireAdmin_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)
	called := false
	handler := sm.RequireAdmin(okHandler(&called))

	req := httptest.NewRequest("GET", "/users?q=anita", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	want := "/login?return=%2Fusers%3Fq%3Danita"
	if loc := rec.Header().Get("Location"); loc != want {
		t.Errorf("Location: got %q, want %q", loc, want)
	}
	if called {
		t.Error("protected handler ran without a user")
	}
}

func TestRequireAdmin_NoUser_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	called := false
	handler := sm.RequireAdmin(okHandler(&called))

	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAdmin_NoUser_HTMX_ReturnsHXRedirect(t *testing.T) {
	sm := newTestSessionManager(t)
	called := false
	handler := sm.RequireAdmin(okHandler(&called))

	req := httptest.NewRequest("GET", "/users/table", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if hx := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(hx, "/login") {
		t.Errorf("expected HX-Redirect to /login, got %q", hx)
	}
}

func TestRequireAdmin_NonAdmin(t *testing.T) {
	sm := newTestSessionManager(t)
	called := false
	handler := sm.RequireAdmin(okHandler(&called))

	tests := []struct {
		name     string
		header   string
		value    string
		wantCode int
	}{
		{"html", "Accept", "text/html", http.StatusSeeOther},
		{"htmx", "HX-Request", "true", http.StatusForbidden},
		{"api", "Accept", "application/json", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/dashboard", nil)
			req.Header.Set(tt.header, tt.value)
			req = auth.WithTestUser(req, &auth.SessionUser{ID: "u1", Name: "Student"})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.name == "html" && rec.Header().Get("Location") != "/forbidden" {
				t.Errorf("Location: got %q, want /forbidden", rec.Header().Get("Location"))
			}
		})
	}
	if called {
		t.Error("protected handler ran for a non-admin")
	}
}

func TestRequireAdmin_Admin_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)
	called := false
	handler := sm.RequireAdmin(okHandler(&called))

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "a1", IsAdmin: true})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Errorf("called=%v status=%d, want true/200", called, rec.Code)
	}
}

func TestSignIn_LoadSessionUser_RevalidatesEachRequest(t *testing.T) {
	sm := newTestSessionManager(t)
	checker := &fakeChecker{admins: map[string]bool{"a1": true}}
	sm.UseChecker(checker)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/google/callback", nil)
	if err := sm.SignIn(rec, req, &auth.SessionUser{ID: "a1", Name: "Provider Name", Email: "a@example.com", Provider: "google"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("SignIn did not set a cookie")
	}

	var got *auth.SessionUser
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))

	req2 := httptest.NewRequest("GET", "/dashboard", nil)
	for _, c := range cookies {
		req2.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req2)

	if got == nil || got.ID != "a1" || !got.IsAdmin {
		t.Fatalf("session user = %+v, want admin a1", got)
	}
	if got.Name != "Doc Name" {
		t.Errorf("Name = %q, want document name", got.Name)
	}

	// Role revoked: the next request is no longer admin.
	checker.admins["a1"] = false
	handler.ServeHTTP(httptest.NewRecorder(), req2)
	if got == nil || got.IsAdmin {
		t.Errorf("revoked admin still admin: %+v", got)
	}
	if checker.calls != 2 {
		t.Errorf("checker calls = %d, want 2", checker.calls)
	}
}

func TestLoadSessionUser_NoCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	checker := &fakeChecker{}
	sm.UseChecker(checker)

	var ok bool
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = auth.CurrentUser(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if ok {
		t.Error("user injected without a session")
	}
	if checker.calls != 0 {
		t.Error("guard consulted without a session")
	}
}

func TestLoadSessionUser_TamperedCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	var ok bool
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "not-a-valid-cookie"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if ok {
		t.Error("tampered cookie produced a user")
	}
}

func TestSignOut_ExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	if err := sm.SignOut(rec, httptest.NewRequest("GET", "/logout", nil)); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge != -1 {
				t.Errorf("cookie MaxAge: got %d, want -1 (delete)", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}
}

func TestSafeReturn(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "/dashboard"},
		{"/users?q=a", "/users?q=a"},
		{"https://evil.example", "/dashboard"},
		{"//evil.example", "/dashboard"},
		{"/\\evil.example", "/dashboard"},
	}
	for _, tt := range tests {
		if got := auth.SafeReturn(tt.in); got != tt.want {
			t.Errorf("SafeReturn(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	user, ok := auth.CurrentUser(httptest.NewRequest("GET", "/", nil))
	if ok || user != nil {
		t.Error("expected no user in a fresh request")
	}
}
