// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.

newsCollections lists the per-owner news collections that exist right now
("companies/acme/news", ...). Collections created later get their index the
next time the app starts.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, newsCollections []string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var problems []string

	if err := ensureNotifications(ctx, db, log); err != nil {
		problems = append(problems, "notifications: "+err.Error())
	}
	for _, owners := range []string{"companies", "media-group"} {
		if err := ensureOwners(ctx, db.Collection(owners), log); err != nil {
			problems = append(problems, owners+": "+err.Error())
		}
	}
	for _, name := range newsCollections {
		if err := ensureNews(ctx, db.Collection(name), log); err != nil {
			problems = append(problems, name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// An unset option and an explicit false mean the same thing.
func boolVal(b *bool) bool { return b != nil && *b }

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name.
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 85 {
		return true
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection, log *zap.Logger) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			log.Warn("failed to decode existing index", zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops an index whose name or options differ and creates the
// desired one in its place.
func recreate(ctx context.Context, coll *mongo.Collection, old string, m mongo.IndexModel) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		return fmt.Errorf("drop %s: %w", old, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, log *zap.Logger) error {
	var errs []string

	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{zap.String("collection", coll.Name()), zap.String("name", name), zap.String("keys", sig)}

		ex, ok := listIndexes(ctx, coll, log)[sig]
		switch {
		case ok && boolVal(unique) == boolVal(ex.Unique) && (name == "" || ex.Name == name):
			log.Debug("reusing existing index", fields...)
			continue

		case ok:
			// Same keys under another name or with other options.
			if err := recreate(ctx, coll, ex.Name, m); err != nil {
				log.Warn("index recreate failed", append(fields, zap.Error(err))...)
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
				continue
			}
			log.Info("index recreated", append(fields, zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))...)
			continue
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) {
				// Lost a race with another instance; the index exists now.
				if _, ok := listIndexes(ctx, coll, log)[sig]; ok {
					log.Info("index created concurrently", fields...)
					continue
				}
			}
			log.Warn("index ensure failed", append(fields, zap.Error(err))...)
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			continue
		}
		log.Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureNotifications(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection("notifications"), []mongo.IndexModel{
		// Live list order.
		{
			Keys:    bson.D{{Key: "publishedAt", Value: -1}},
			Options: options.Index().SetName("idx_notifications_publishedat"),
		},
		// Dashboard counts of important notices.
		{
			Keys:    bson.D{{Key: "isImportant", Value: 1}, {Key: "publishedAt", Value: -1}},
			Options: options.Index().SetName("idx_notifications_important_publishedat"),
		},
	}, log)
}

func ensureOwners(ctx context.Context, c *mongo.Collection, log *zap.Logger) error {
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_owners_name"),
		},
	}, log)
}

func ensureNews(ctx context.Context, c *mongo.Collection, log *zap.Logger) error {
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Live article query: tombstones filtered out, newest first.
		{
			Keys:    bson.D{{Key: "deleted", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_news_deleted_date"),
		},
	}, log)
}
