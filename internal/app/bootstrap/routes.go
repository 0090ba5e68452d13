// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	authgooglefeature "github.com/dalemusser/learnerdash/internal/app/features/authgoogle"
	dashboardfeature "github.com/dalemusser/learnerdash/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/learnerdash/internal/app/features/errors"
	healthfeature "github.com/dalemusser/learnerdash/internal/app/features/health"
	homefeature "github.com/dalemusser/learnerdash/internal/app/features/home"
	loginfeature "github.com/dalemusser/learnerdash/internal/app/features/login"
	logoutfeature "github.com/dalemusser/learnerdash/internal/app/features/logout"
	usersfeature "github.com/dalemusser/learnerdash/internal/app/features/users"
	userstore "github.com/dalemusser/learnerdash/internal/app/store/users"
	"github.com/dalemusser/learnerdash/internal/app/system/auth"
	"github.com/dalemusser/learnerdash/internal/app/system/guard"
	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
	"github.com/dalemusser/learnerdash/internal/app/system/metrics"
	"github.com/dalemusser/learnerdash/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It initializes the template engine,
// wires the guard into the session middleware, opens the live feed over
// the users collection and mounts the feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	m := metrics.New()
	store := userstore.New(deps.MongoDatabase, appCfg.UsersCollection)

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// The guard re-checks the admin role on every request, so role changes
	// and deleted documents take effect immediately.
	g := guard.New(store, func(err error) bool { return errors.Is(err, userstore.ErrNotFound) }, logger, m)
	sessionMgr.UseChecker(g)

	stateCodec, err := authgooglefeature.NewStateCodec(appCfg.SessionKey)
	if err != nil {
		logger.Error("oauth state codec init failed", zap.Error(err))
		return nil, err
	}

	feed := newFeed(appCfg, store, logger, m)

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	r := chi.NewRouter()
	r.Use(m.Middleware)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.LiveMode, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", m.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	homeHandler := homefeature.NewHandler(logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	signInLimiter := ratelimit.NewSignInLimiter()

	googleHandler := authgooglefeature.NewHandler(sessionMgr, stateCodec,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, secure, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler, signInLimiter))

	loginHandler := loginfeature.NewHandler(sessionMgr, googleHandler.IsConfigured(), appCfg.DevLogin, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler, signInLimiter))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Error pages
	errorsfeature.Mount(r, errorsfeature.NewHandler())

	// Admin views
	dashboardHandler := dashboardfeature.NewHandler(feed, appCfg.UsersCollection, appCfg.SSEHeartbeat, m, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	usersHandler := usersfeature.NewHandler(feed, appCfg.UsersCollection, appCfg.SSEHeartbeat, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

	// JSON API
	r.Route("/api", func(api chi.Router) {
		api.Use(sessionMgr.RequireAdmin)
		api.Get("/stats", dashboardHandler.ServeStatsAPI)
		api.Get("/users", usersHandler.ServeAPI)
	})

	return r, nil
}

// newFeed picks the live source for the configured mode. Poll mode re-reads
// on a ticker and relies on version comparison to skip unchanged snapshots.
func newFeed(appCfg AppConfig, store *userstore.Store, logger *zap.Logger, m *metrics.Metrics) *livefeed.Feed {
	if appCfg.LiveMode == LiveModePoll {
		return livefeed.New(livefeed.Polling(store, appCfg.LivePollInterval), livefeed.Options{SkipUnchanged: true}, logger, m)
	}
	return livefeed.New(store, livefeed.Options{}, logger, m)
}
