// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/learnerdash/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the users pages under the base path (typically "/users").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireAdmin)

		pr.Get("/", h.ServeList)
		pr.Get("/table", h.ServeTable)
		pr.Get("/events", h.ServeListEvents)

		pr.Get("/{id}", h.ServeDetail)
		pr.Get("/{id}/events", h.ServeDetailEvents)
	})

	return r
}
