// internal/app/features/errors/routes.go
package errors

import "github.com/go-chi/chi/v5"

// Mount adds the error pages to r at top level.
func Mount(r chi.Router, h *Handler) {
	r.Get("/forbidden", h.Forbidden)
	r.Get("/unauthorized", h.Unauthorized)
}
