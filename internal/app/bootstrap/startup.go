// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after the backends are connected and the schema is in place,
// before the HTTP handler is built. It loads the owner directory and starts
// the long-lived monitors.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	loadCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	owners, err := deps.Owners.All(loadCtx)
	cancel()
	if err != nil {
		// Owners are also fetched on demand, so a cold directory only
		// costs extra reads.
		logger.Warn("owner directory preload failed", zap.Error(err))
	} else {
		logger.Info("owner directory loaded", zap.Int("owners", len(owners)))
	}

	// The monitors outlive ctx, which only covers startup.
	if err := deps.Monitors.Start(context.Background(), deps, logger); err != nil {
		logger.Error("live monitors failed to start", zap.Error(err))
		return err
	}
	return nil
}
