package testutil

import (
	"net/http"
	"net/http/httptest"

	"github.com/dalemusser/learnerdash/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminUser returns a session user the guard admitted as admin.
func AdminUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:       primitive.NewObjectID().Hex(),
		Name:     "Test Admin",
		Email:    "admin@test.com",
		Provider: "google",
		IsAdmin:  true,
	}
}

// LearnerUser returns a signed-in session user without the admin role.
func LearnerUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:       primitive.NewObjectID().Hex(),
		Name:     "Test Learner",
		Email:    "learner@test.com",
		Provider: "google",
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user *auth.SessionUser) *http.Request {
	return auth.WithTestUser(r, user)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAdminRequest creates a GET request carrying an admin session user.
func NewAdminRequest(target string) *http.Request {
	return WithUser(NewRequest(http.MethodGet, target), AdminUser())
}
