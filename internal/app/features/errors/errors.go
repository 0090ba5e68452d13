// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/learnerdash/internal/app/system/viewdata"
)

// pageData is the basic view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Message string
}

// Handler is the errors feature handler.
// No DB needed; it just renders templates.
type Handler struct {
	Render viewdata.Renderer
}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{Render: viewdata.Templates{}}
}

// Forbidden renders a friendly "access denied" page. Signed-in users who
// are not admins land here.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusForbidden)
	h.Render.Page(w, r, "error_forbidden", pageData{
		BaseVM:  viewdata.NewBaseVM(r, "Access denied", "/login"),
		Message: "Access denied. Admin privileges required.",
	})
}

// Unauthorized renders a friendly "sign in required" page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusUnauthorized)
	h.Render.Page(w, r, "error_forbidden", pageData{
		BaseVM:  viewdata.NewBaseVM(r, "Sign in required", "/login"),
		Message: "Please sign in to continue.",
	})
}
