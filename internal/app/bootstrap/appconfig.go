// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (NEWSDESK_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers the framework-level settings: ports, TLS, logging, CORS and body
// limits.
type AppConfig struct {
	// Document store backend: "mongo" or "memory".
	DocStore          string
	WatchPollInterval time.Duration // polling fallback when change streams are unavailable

	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string
	SessionDomain string // blank means current host
	SessionMaxAge time.Duration

	// The single staff account allowed into the console.
	StaffEmail        string
	StaffName         string
	StaffPasswordHash string // bcrypt

	// Thumbnail storage. BlobBackend is "gridfs", "local" or "memory"; blank
	// picks gridfs for mongo and memory for the memory document store.
	BlobBackend       string
	BlobBucket        string // GridFS bucket in the same database
	BlobLocalPath     string // directory for the local backend
	BlobURLPrefix     string // URL prefix the files feature is mounted at
	MaxThumbnailBytes int64

	// Date display
	DisplayTimezone string // IANA name, e.g. Asia/Tokyo
	DisplayLocale   string // "ja" or "en"
}
