// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/learnerdash/internal/app/resources"
	"github.com/dalemusser/learnerdash/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts configured from environment",
			zap.Duration("ping", cur.Ping),
			zap.Duration("short", cur.Short),
			zap.Duration("load", cur.Load))
	}

	if err := resources.LoadSharedTemplates(); err != nil {
		return err
	}

	logger.Info("live updates",
		zap.String("mode", appCfg.LiveMode),
		zap.String("collection", appCfg.UsersCollection),
		zap.Duration("poll_interval", appCfg.LivePollInterval),
		zap.Duration("sse_heartbeat", appCfg.SSEHeartbeat))
	return nil
}
