// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	articlestore "github.com/dalemusser/newsdesk/internal/app/store/articles"
	notificationstore "github.com/dalemusser/newsdesk/internal/app/store/notifications"
	ownerstore "github.com/dalemusser/newsdesk/internal/app/store/owners"
	"github.com/dalemusser/newsdesk/internal/app/system/clock"
	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/app/system/metrics"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends and the process-wide services built on them.
// Everything here is created once in ConnectDB and shared by all requests.
type DBDeps struct {
	// Nil when the memory backend is in use.
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Backend string // "mongo" or "memory"
	Docs    docstore.Store
	Blobs   storage.Store

	Clock      clock.Clock
	Normalizer *datetime.Normalizer
	Owners     *ownerstore.Directory

	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	Articles      *articlestore.Store
	Notifications *notificationstore.Store

	// Started in Startup, stopped in Shutdown.
	Monitors *Monitors
}
