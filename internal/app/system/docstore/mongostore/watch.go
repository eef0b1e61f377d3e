package mongostore

import (
	"context"
	"errors"
	"hash/fnv"
	"regexp"
	"sort"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Watch streams full snapshots of q. It opens a change stream (collection
// scoped for a plain query, database scoped and filtered by collection name
// for a group query) and re-runs the query after each burst of events. When
// the deployment has no change streams (a standalone server), it polls at the
// configured interval instead and only emits when the result changed.
func (s *Store) Watch(ctx context.Context, q docstore.Query) (<-chan docstore.Snapshot, error) {
	if !q.Group {
		if _, err := s.coll(q.Collection); err != nil {
			return nil, err
		}
	}

	var cs *mongo.ChangeStream
	if !s.forcePoll {
		var err error
		cs, err = s.openStream(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fields := []zap.Field{
				zap.String("collection", q.Collection),
				zap.Duration("interval", s.pollInterval),
				zap.Error(err),
			}
			if IsChangeStreamUnsupported(err) {
				s.log.Info("change streams not supported, polling instead", fields...)
			} else {
				s.log.Warn("change stream failed to open, polling instead", fields...)
			}
		}
	}

	out := make(chan docstore.Snapshot)
	if cs != nil {
		go s.streamLoop(ctx, q, cs, out)
	} else {
		go s.pollLoop(ctx, q, out)
	}
	return out, nil
}

func (s *Store) openStream(ctx context.Context, q docstore.Query) (*mongo.ChangeStream, error) {
	if !q.Group {
		return s.db.Collection(q.Collection).Watch(ctx, mongo.Pipeline{})
	}
	pattern := "(^|/)" + regexp.QuoteMeta(q.Collection) + "$"
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ns.coll": bson.M{"$regex": pattern}}}},
	}
	return s.db.Watch(ctx, pipeline)
}

func (s *Store) streamLoop(ctx context.Context, q docstore.Query, cs *mongo.ChangeStream, out chan<- docstore.Snapshot) {
	defer close(out)
	defer cs.Close(context.Background())

	if !s.emit(ctx, q, out) {
		return
	}
	for cs.Next(ctx) {
		// Collapse a burst of events into one re-query.
		for cs.RemainingBatchLength() > 0 && cs.Next(ctx) {
		}
		if !s.emit(ctx, q, out) {
			return
		}
	}
	if err := cs.Err(); err != nil && ctx.Err() == nil {
		s.log.Error("change stream failed", zap.String("collection", q.Collection), zap.Error(err))
		send(ctx, out, docstore.Snapshot{Err: err})
	}
}

func (s *Store) pollLoop(ctx context.Context, q docstore.Query, out chan<- docstore.Snapshot) {
	defer close(out)

	var last uint64
	first := true
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		docs, err := s.Query(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error("watch poll failed", zap.String("collection", q.Collection), zap.Error(err))
				send(ctx, out, docstore.Snapshot{Err: err})
			}
			return
		}
		if fp := fingerprint(docs); first || fp != last {
			first, last = false, fp
			if !send(ctx, out, docstore.Snapshot{Docs: docs}) {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// emit runs the query and delivers the result. It returns false when the
// watch should stop.
func (s *Store) emit(ctx context.Context, q docstore.Query, out chan<- docstore.Snapshot) bool {
	docs, err := s.Query(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.log.Error("watch query failed", zap.String("collection", q.Collection), zap.Error(err))
		send(ctx, out, docstore.Snapshot{Err: err})
		return false
	}
	return send(ctx, out, docstore.Snapshot{Docs: docs})
}

func send(ctx context.Context, out chan<- docstore.Snapshot, snap docstore.Snapshot) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

// fingerprint hashes a snapshot so polling can skip unchanged results.
func fingerprint(docs []docstore.Document) uint64 {
	h := fnv.New64a()
	for _, d := range docs {
		h.Write([]byte(d.Path))
		h.Write([]byte{0})
		h.Write([]byte(d.ID))
		h.Write([]byte{0})
		raw, err := bson.Marshal(canonical(d.Data))
		if err != nil {
			// Unmarshalable data never compares equal.
			h.Write([]byte(time.Now().String()))
			continue
		}
		h.Write(raw)
	}
	return h.Sum64()
}

// canonical rewrites maps as key-sorted bson.D so equal data hashes equally.
func canonical(v any) any {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := make(bson.D, 0, len(keys))
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: canonical(x[k])})
		}
		return d
	case []any:
		out := make(bson.A, len(x))
		for i, e := range x {
			out[i] = canonical(e)
		}
		return out
	}
	return v
}

// IsChangeStreamUnsupported reports whether err came from a server that
// cannot open change streams.
func IsChangeStreamUnsupported(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code == 40573 || ce.Name == "Location40573"
	}
	return false
}
