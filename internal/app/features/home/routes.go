// internal/app/features/home/routes.go
package home

import "github.com/go-chi/chi/v5"

// Routes serves the root redirect, mounted at "/".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeRoot)
	r.Head("/", h.ServeRoot)
	return r
}
