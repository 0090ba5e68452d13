package home

import (
	"net/http"

	"github.com/dalemusser/learnerdash/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler sends visitors of the site root to where they belong.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRoot redirects admins to the overview, other signed-in users to the
// access-denied page and everyone else to sign-in.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	target := "/login"
	if u, ok := auth.CurrentUser(r); ok {
		target = "/forbidden"
		if u.IsAdmin {
			target = "/dashboard"
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
