// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"strings"

	"github.com/dalemusser/learnerdash/internal/app/system/auth"
	"github.com/dalemusser/learnerdash/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

type Handler struct {
	Log           *zap.Logger
	SessionMgr    *auth.SessionManager
	Render        viewdata.Renderer
	GoogleEnabled bool // True if Google OAuth is configured
	DevLogin      bool // True if id-based development sign-in is allowed
}

func NewHandler(sessionMgr *auth.SessionManager, googleEnabled, devLogin bool, logger *zap.Logger) *Handler {
	return &Handler{
		Log:           logger,
		SessionMgr:    sessionMgr,
		Render:        viewdata.Templates{},
		GoogleEnabled: googleEnabled,
		DevLogin:      devLogin,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error         string
	UserID        string
	ReturnURL     string
	GoogleEnabled bool
	DevLogin      bool
}

// errorMessages maps the ?error= codes set by the OAuth flow.
var errorMessages = map[string]string{
	"google_not_configured": "Google sign-in is not configured.",
	"google_denied":         "Google sign-in was cancelled.",
	"invalid_state":         "Your sign-in attempt expired. Please try again.",
	"invalid_code":          "Google did not return an authorization code.",
	"token_exchange":        "Could not complete sign-in with Google.",
	"user_info":             "Could not read your Google profile.",
	"internal":              "Something went wrong. Please try again.",
}

func (h *Handler) form(r *http.Request, ret, userID, msg string) loginFormData {
	return loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Login", "/"),
		Error:         msg,
		UserID:        userID,
		ReturnURL:     ret,
		GoogleEnabled: h.GoogleEnabled,
		DevLogin:      h.DevLogin,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	ret := query.Get(r, "return")

	if u, ok := auth.CurrentUser(r); ok && u.IsAdmin {
		http.Redirect(w, r, auth.SafeReturn(ret), http.StatusSeeOther)
		return
	}

	msg := ""
	if code := query.Get(r, "error"); code != "" {
		msg = errorMessages[code]
		if msg == "" {
			msg = errorMessages["internal"]
		}
	}
	h.Render.Page(w, r, "login", h.form(r, ret, "", msg))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login (development sign-in)                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleLoginPost signs in with a bare user id. The guard decides on the
// next request whether that id belongs to an admin.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if !h.DevLogin {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.Log.Warn("login: parse form failed", zap.Error(err))
		http.Error(w, "Invalid form data.", http.StatusBadRequest)
		return
	}

	ret := r.FormValue("return")
	userID := strings.TrimSpace(r.FormValue("user_id"))
	if userID == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		h.Render.Page(w, r, "login", h.form(r, ret, userID, "Please enter a user id."))
		return
	}

	u := &auth.SessionUser{ID: userID, Provider: "dev"}
	if err := h.SessionMgr.SignIn(w, r, u); err != nil {
		h.Log.Error("login: save session", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		h.Render.Page(w, r, "login", h.form(r, ret, userID, errorMessages["internal"]))
		return
	}

	h.Log.Info("dev sign-in", zap.String("uid", userID))
	http.Redirect(w, r, auth.SafeReturn(ret), http.StatusSeeOther)
}
