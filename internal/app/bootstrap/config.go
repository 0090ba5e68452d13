// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/learnerdash/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the dashboard.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, live_mode, etc.
//   - Environment variables: LEARNERDASH_MONGO_URI, LEARNERDASH_LIVE_MODE, etc.
//   - Command-line flags: --mongo_uri, --live_mode, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "learnerdash", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 50, Desc: "MongoDB max connection pool size (default: 50)"},
	{Name: "users_collection", Default: "users", Desc: "Collection holding learner documents"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session secret (must be strong in production)"},
	{Name: "session_name", Default: "learnerdash-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session lifetime (e.g., 8h, 24h)"},

	// Sign-in
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL, used for the OAuth redirect"},
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "dev_login", Default: false, Desc: "Enable sign-in by user id (development only)"},

	// Live updates
	{Name: "live_mode", Default: LiveModeChangeStream, Desc: "Live update source: 'changestream' (replica set) or 'poll'"},
	{Name: "live_poll_interval", Default: "5s", Desc: "Re-read interval in poll mode"},
	{Name: "sse_heartbeat", Default: "25s", Desc: "Keep-alive interval for event streams"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, LEARNERDASH_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "LEARNERDASH", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		UsersCollection:  appValues.String("users_collection"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		BaseURL:            appValues.String("base_url"),
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		DevLogin:           appValues.Bool("dev_login"),

		LiveMode:         appValues.String("live_mode"),
		LivePollInterval: appValues.Duration("live_poll_interval", 5*time.Second),
		SSEHeartbeat:     appValues.Duration("sse_heartbeat", 25*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env == "prod", appCfg)
}

// validateApp holds the checks that need no WAFFLE state.
func validateApp(prod bool, appCfg AppConfig) error {
	if appCfg.UsersCollection == "" {
		return fmt.Errorf("users_collection must not be empty")
	}

	switch appCfg.LiveMode {
	case LiveModeChangeStream:
	case LiveModePoll:
		if appCfg.LivePollInterval < time.Second {
			return fmt.Errorf("live_poll_interval must be at least 1s (got %s)", appCfg.LivePollInterval)
		}
	default:
		return fmt.Errorf("live_mode must be %q or %q (got %q)", LiveModeChangeStream, LiveModePoll, appCfg.LiveMode)
	}

	if appCfg.SSEHeartbeat < 0 {
		return fmt.Errorf("sse_heartbeat must not be negative")
	}
	if appCfg.SessionMaxAge <= 0 {
		return fmt.Errorf("session_max_age must be positive")
	}

	if prod {
		if len(appCfg.SessionKey) < auth.MinKeyLength {
			return fmt.Errorf("session_key must be at least %d characters in production", auth.MinKeyLength)
		}
		if appCfg.DevLogin {
			return fmt.Errorf("dev_login cannot be enabled in production")
		}
	}
	return nil
}
