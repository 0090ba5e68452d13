// internal/app/features/login/routes.go
package login

import (
	"github.com/dalemusser/learnerdash/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes serves the sign-in page. Posts are limited per client IP.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogin)
	r.With(limiter.ByClientIP).Post("/", h.HandleLoginPost)
	return r
}
