// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	articlestore "github.com/dalemusser/newsdesk/internal/app/store/articles"
	notificationstore "github.com/dalemusser/newsdesk/internal/app/store/notifications"
	ownerstore "github.com/dalemusser/newsdesk/internal/app/store/owners"
	"github.com/dalemusser/newsdesk/internal/app/system/blobstore"
	"github.com/dalemusser/newsdesk/internal/app/system/clock"
	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore/memstore"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore/mongostore"
	"github.com/dalemusser/newsdesk/internal/app/system/indexes"
	"github.com/dalemusser/newsdesk/internal/app/system/metrics"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the document and blob backends and builds the shared
// services on top of them.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	deps := DBDeps{Backend: appCfg.DocStore}

	switch appCfg.DocStore {
	case docStoreMemory:
		deps.Docs = memstore.New()

	default:
		client, err := connectMongo(ctx, appCfg, logger)
		if err != nil {
			return DBDeps{}, err
		}
		db := client.Database(appCfg.MongoDatabase)

		var opts []mongostore.Option
		if appCfg.WatchPollInterval > 0 {
			opts = append(opts, mongostore.WithPollInterval(appCfg.WatchPollInterval))
		}
		deps.MongoClient = client
		deps.MongoDatabase = db
		deps.Docs = mongostore.New(db, logger, opts...)
	}

	blobs, err := openBlobs(appCfg, deps.MongoDatabase, logger)
	if err != nil {
		if deps.MongoClient != nil {
			_ = deps.MongoClient.Disconnect(context.Background())
		}
		return DBDeps{}, err
	}
	deps.Blobs = blobs

	if err := buildServices(&deps, appCfg, clock.System{}, logger); err != nil {
		if deps.MongoClient != nil {
			_ = deps.MongoClient.Disconnect(context.Background())
		}
		return DBDeps{}, err
	}
	return deps, nil
}

// openBlobs builds the thumbnail store. URLs are rooted at BlobURLPrefix,
// where the files feature serves them.
func openBlobs(appCfg AppConfig, db *mongo.Database, logger *zap.Logger) (storage.Store, error) {
	backend := blobBackend(appCfg)
	var (
		s   storage.Store
		err error
	)
	switch backend {
	case blobGridFS:
		if db == nil {
			return nil, fmt.Errorf("blob backend %q requires MongoDB", blobGridFS)
		}
		s = blobstore.NewGridFS(db, appCfg.BlobBucket, appCfg.BlobURLPrefix)
	case blobLocal:
		s, err = storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.BlobLocalPath,
			BaseURL:  strings.TrimRight(appCfg.BlobURLPrefix, "/"),
		})
		if err != nil {
			return nil, fmt.Errorf("open local blob store: %w", err)
		}
	case blobMemory:
		s = storage.NewMemory(storage.MemoryConfig{BaseURL: strings.TrimRight(appCfg.BlobURLPrefix, "/")})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", backend)
	}
	logger.Info("thumbnail storage ready", zap.String("backend", s.Backend()))
	return s, nil
}

func connectMongo(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize).
		SetServerSelectionTimeout(timeouts.Medium())

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	start := time.Now()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		logger.Error("MongoDB connect failed", zap.Error(err))
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, timeouts.Ping())
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("MongoDB ping failed", zap.Error(err))
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize),
		zap.Duration("took", time.Since(start)))
	return client, nil
}

// buildServices wires the normalizer, owner directory, metrics and stores
// onto deps.Docs and deps.Blobs.
func buildServices(deps *DBDeps, appCfg AppConfig, c clock.Clock, logger *zap.Logger) error {
	loc, err := time.LoadLocation(appCfg.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("load display timezone: %w", err)
	}
	locale, err := datetime.ParseLocale(appCfg.DisplayLocale)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(reg)

	n := datetime.New(c, logger,
		datetime.WithLocation(loc),
		datetime.WithLocale(locale),
		datetime.WithFallbackHook(m.RecordDateFallback))

	deps.Clock = c
	deps.Registry = reg
	deps.Metrics = m
	deps.Normalizer = n
	deps.Owners = ownerstore.New(deps.Docs, logger)
	deps.Articles = articlestore.New(deps.Docs, deps.Blobs, n, logger,
		articlestore.WithMetrics(m),
		articlestore.WithMaxThumbnailBytes(appCfg.MaxThumbnailBytes))
	deps.Notifications = notificationstore.New(deps.Docs, n, logger,
		notificationstore.WithMetrics(m))
	deps.Monitors = &Monitors{}
	return nil
}

// EnsureSchema reconciles MongoDB indexes. The memory backend has none.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	ms, ok := deps.Docs.(*mongostore.Store)
	if !ok {
		return fmt.Errorf("mongo backend without a mongo document store")
	}
	news, err := ms.GroupCollections(ctx, articlestore.LiveQuery().Collection)
	if err != nil {
		return fmt.Errorf("list news collections: %w", err)
	}
	return indexes.EnsureAll(ctx, deps.MongoDatabase, news, logger)
}
