// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	articlesfeature "github.com/dalemusser/newsdesk/internal/app/features/articles"
	dashboardfeature "github.com/dalemusser/newsdesk/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/newsdesk/internal/app/features/errors"
	filesfeature "github.com/dalemusser/newsdesk/internal/app/features/files"
	healthfeature "github.com/dalemusser/newsdesk/internal/app/features/health"
	loginfeature "github.com/dalemusser/newsdesk/internal/app/features/login"
	logoutfeature "github.com/dalemusser/newsdesk/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/newsdesk/internal/app/features/notifications"
	ownersfeature "github.com/dalemusser/newsdesk/internal/app/features/owners"
	"github.com/dalemusser/newsdesk/internal/app/system/auth"
	"github.com/dalemusser/newsdesk/internal/app/system/metrics"
	"github.com/dalemusser/newsdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler.
//
// Public: /health, /metrics, /login, /logout and the thumbnail files.
// Everything under /api requires a signed-in staff session.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg != nil && coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	staff := auth.Staff{
		Email:        appCfg.StaffEmail,
		Name:         appCfg.StaffName,
		PasswordHash: appCfg.StaffPasswordHash,
	}

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errorsfeature.WriteJSON(w, http.StatusNotFound, errorsfeature.Body{Error: "Not found."})
	})

	// Health check endpoint for load balancers and orchestrators
	var ping healthfeature.PingFunc
	if deps.MongoClient != nil {
		client := deps.MongoClient
		ping = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(ping, deps.Backend, logger)))
	r.Handle("/metrics", metrics.Handler(deps.Registry))

	// Authentication
	loginHandler := loginfeature.NewHandler(sessionMgr, staff, ratelimit.NewLoginLimiter(deps.Clock), deps.Clock, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.Mount("/logout", logoutfeature.Routes(logoutfeature.NewHandler(sessionMgr, logger)))

	// Thumbnails are linked from article rows, so they are public.
	r.Mount(appCfg.BlobURLPrefix, filesfeature.Routes(filesfeature.NewHandler(deps.Blobs, logger)))

	r.Route("/api", func(api chi.Router) {
		api.Use(sessionMgr.RequireSignedIn)

		api.Mount("/owners", ownersfeature.Routes(ownersfeature.NewHandler(deps.Owners, logger)))

		dashboardHandler := dashboardfeature.NewHandler(deps.Articles, deps.Notifications, deps.Normalizer, logger)
		if deps.Monitors != nil {
			dashboardHandler.Live = deps.Monitors
		}
		api.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

		articlesHandler := articlesfeature.NewHandler(deps.Articles, deps.Owners, deps.Docs, deps.Normalizer,
			appCfg.MaxThumbnailBytes, logger)
		api.Mount("/articles", articlesfeature.Routes(articlesHandler))

		notificationsHandler := notificationsfeature.NewHandler(deps.Notifications, deps.Docs, deps.Normalizer, logger)
		api.Mount("/notifications", notificationsfeature.Routes(notificationsHandler))
	})

	return r, nil
}
