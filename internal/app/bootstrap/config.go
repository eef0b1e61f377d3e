// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	docStoreMongo  = "mongo"
	docStoreMemory = "memory"

	blobGridFS = "gridfs"
	blobLocal  = "local"
	blobMemory = "memory"
)

// appConfigKeys defines the configuration keys for newsdesk.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: NEWSDESK_MONGO_URI, NEWSDESK_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "docstore", Default: docStoreMongo, Desc: "Document store backend: 'mongo' or 'memory'"},
	{Name: "watch_poll_interval", Default: "2s", Desc: "Re-query interval when change streams are unavailable"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "newsdesk", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "newsdesk-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "12h", Desc: "Session lifetime"},

	{Name: "staff_email", Default: "", Desc: "Email of the staff account"},
	{Name: "staff_name", Default: "Staff", Desc: "Display name of the staff account"},
	{Name: "staff_password_hash", Default: "", Desc: "bcrypt hash of the staff password"},

	{Name: "blob_backend", Default: "", Desc: "Thumbnail storage: 'gridfs', 'local' or 'memory' (blank follows docstore)"},
	{Name: "blob_bucket", Default: "thumbnails", Desc: "GridFS bucket for article thumbnails"},
	{Name: "blob_local_path", Default: "./data/files", Desc: "Directory for the local thumbnail backend"},
	{Name: "blob_url_prefix", Default: "/files", Desc: "URL prefix for serving thumbnails"},
	{Name: "max_thumbnail_bytes", Default: 5 << 20, Desc: "Largest accepted thumbnail upload in bytes"},

	{Name: "display_timezone", Default: "Asia/Tokyo", Desc: "Time zone used to display and interpret dates"},
	{Name: "display_locale", Default: "ja", Desc: "Locale for month and weekday names: 'ja' or 'en'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges, with precedence
// flags > env > files > defaults. Operation timeouts are read from
// TIMEOUT_* afterwards.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "NEWSDESK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		DocStore:          appValues.String("docstore"),
		WatchPollInterval: appValues.Duration("watch_poll_interval", 2*time.Second),

		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 12*time.Hour),

		StaffEmail:        appValues.String("staff_email"),
		StaffName:         appValues.String("staff_name"),
		StaffPasswordHash: appValues.String("staff_password_hash"),

		BlobBackend:       appValues.String("blob_backend"),
		BlobBucket:        appValues.String("blob_bucket"),
		BlobLocalPath:     appValues.String("blob_local_path"),
		BlobURLPrefix:     appValues.String("blob_url_prefix"),
		MaxThumbnailBytes: int64(appValues.Int("max_thumbnail_bytes")),

		DisplayTimezone: appValues.String("display_timezone"),
		DisplayLocale:   appValues.String("display_locale"),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("operation timeouts overridden from environment", zap.Int("count", n))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation. Returning an error
// aborts startup before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.DocStore {
	case docStoreMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required")
		}
	case docStoreMemory:
		logger.Warn("using the in-memory document store; data is lost on restart")
	default:
		return fmt.Errorf("docstore must be %q or %q, got %q", docStoreMongo, docStoreMemory, appCfg.DocStore)
	}

	if _, err := time.LoadLocation(appCfg.DisplayTimezone); err != nil {
		return fmt.Errorf("invalid display_timezone %q: %w", appCfg.DisplayTimezone, err)
	}
	if _, err := datetime.ParseLocale(appCfg.DisplayLocale); err != nil {
		return fmt.Errorf("invalid display_locale: %w", err)
	}
	switch blobBackend(appCfg) {
	case blobGridFS:
		if appCfg.DocStore != docStoreMongo {
			return fmt.Errorf("blob_backend %q needs docstore %q", blobGridFS, docStoreMongo)
		}
	case blobLocal:
		if strings.TrimSpace(appCfg.BlobLocalPath) == "" {
			return fmt.Errorf("blob_local_path is required for blob_backend %q", blobLocal)
		}
	case blobMemory:
	default:
		return fmt.Errorf("blob_backend must be %q, %q or %q, got %q", blobGridFS, blobLocal, blobMemory, appCfg.BlobBackend)
	}
	if !strings.HasPrefix(appCfg.BlobURLPrefix, "/") || appCfg.BlobURLPrefix == "/" {
		return fmt.Errorf("blob_url_prefix must be a path such as /files, got %q", appCfg.BlobURLPrefix)
	}
	if appCfg.MaxThumbnailBytes <= 0 {
		return fmt.Errorf("max_thumbnail_bytes must be positive")
	}

	if appCfg.StaffEmail == "" || appCfg.StaffPasswordHash == "" {
		if coreCfg != nil && coreCfg.Env == "prod" {
			return fmt.Errorf("staff_email and staff_password_hash are required in production")
		}
		logger.Warn("no staff account configured; sign-in is disabled")
	}

	return nil
}

// blobBackend resolves the configured thumbnail backend.
func blobBackend(appCfg AppConfig) string {
	if b := strings.ToLower(strings.TrimSpace(appCfg.BlobBackend)); b != "" {
		return b
	}
	if appCfg.DocStore == docStoreMemory {
		return blobMemory
	}
	return blobGridFS
}
