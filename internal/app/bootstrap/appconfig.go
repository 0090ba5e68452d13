// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Live update modes.
const (
	LiveModeChangeStream = "changestream"
	LiveModePoll         = "poll"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration; ports, TLS, log level and
// CORS live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Each open live view holds a change stream cursor
	UsersCollection  string // The collection the dashboard reads and watches

	// Session management configuration
	SessionKey    string        // Secret the cookie keys are derived from (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: learnerdash-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Session lifetime

	// Sign-in
	BaseURL            string // e.g., "https://dash.example.com"; OAuth redirects are built from it
	GoogleClientID     string
	GoogleClientSecret string
	DevLogin           bool // id-based sign-in for local development; rejected in prod

	// Live updates
	LiveMode         string        // "changestream" or "poll"
	LivePollInterval time.Duration // Re-read interval in poll mode
	SSEHeartbeat     time.Duration // Keep-alive comment interval on event streams
}
