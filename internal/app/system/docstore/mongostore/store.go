// Package mongostore implements docstore.Store on MongoDB.
//
// Each collection path maps to a MongoDB collection of the same name
// ("companies/acme/news"). Document identities are stored as string _id
// values; legacy documents with ObjectID ids are still found by their hex
// form. Group queries list the matching collections and combine them with
// $unionWith.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// pathField carries a document's collection through a $unionWith pipeline.
const pathField = "__path"

// DefaultPollInterval is used when change streams are unavailable.
const DefaultPollInterval = 5 * time.Second

type Store struct {
	db           *mongo.Database
	log          *zap.Logger
	pollInterval time.Duration
	forcePoll    bool
}

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets how often a watch re-queries when it has to poll.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithPollingOnly skips change streams entirely.
func WithPollingOnly() Option {
	return func(s *Store) { s.forcePoll = true }
}

func New(db *mongo.Database, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{db: db, log: log, pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ docstore.Store = (*Store)(nil)

// idFilter matches a string id and, when it looks like one, the ObjectID
// with the same hex form.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func (s *Store) coll(path string) (*mongo.Collection, error) {
	if !docstore.ValidCollectionPath(path) {
		return nil, fmt.Errorf("mongostore: invalid collection path %q", path)
	}
	return s.db.Collection(path), nil
}

func (s *Store) Get(ctx context.Context, path, id string) (docstore.Document, error) {
	c, err := s.coll(path)
	if err != nil {
		return docstore.Document{}, err
	}
	var raw bson.M
	if err := c.FindOne(ctx, idFilter(id)).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, err
	}
	return toDocument(path, raw), nil
}

func (s *Store) Add(ctx context.Context, path string, data map[string]any) (string, error) {
	c, err := s.coll(path)
	if err != nil {
		return "", err
	}
	id := primitive.NewObjectID().Hex()
	doc := bson.M{}
	for k, v := range data {
		doc[k] = v
	}
	doc["_id"] = id
	if _, err := c.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Put writes data under an explicit id, replacing any existing document.
func (s *Store) Put(ctx context.Context, path, id string, data map[string]any) error {
	c, err := s.coll(path)
	if err != nil {
		return err
	}
	doc := bson.M{}
	for k, v := range data {
		doc[k] = v
	}
	doc["_id"] = id
	_, err = c.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) Update(ctx context.Context, path, id string, fields map[string]any) error {
	c, err := s.coll(path)
	if err != nil {
		return err
	}
	set := bson.M{}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		set[k] = v
	}
	res, err := c.UpdateOne(ctx, idFilter(id), bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path, id string) error {
	c, err := s.coll(path)
	if err != nil {
		return err
	}
	res, err := c.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if q.Group {
		return s.groupQuery(ctx, q)
	}
	c, err := s.coll(q.Collection)
	if err != nil {
		return nil, err
	}
	find := options.Find()
	if sort := sortSpec(q); sort != nil {
		find.SetSort(sort)
	}
	cur, err := c.Find(ctx, matchFilter(q.Where), find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []docstore.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, toDocument(q.Collection, raw))
	}
	return out, cur.Err()
}

// GroupCollections lists the collections a group query spans.
func (s *Store) GroupCollections(ctx context.Context, name string) ([]string, error) {
	pattern := "(^|/)" + regexp.QuoteMeta(name) + "$"
	names, err := s.db.ListCollectionNames(ctx, bson.M{"name": bson.M{"$regex": pattern}})
	if err != nil {
		return nil, err
	}
	q := docstore.Query{Collection: name, Group: true}
	out := names[:0]
	for _, n := range names {
		if q.Matches(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) groupQuery(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	names, err := s.GroupCollections(ctx, q.Collection)
	if err != nil {
		return nil, fmt.Errorf("list %q collections: %w", q.Collection, err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	match := matchFilter(q.Where)
	branch := func(name string) mongo.Pipeline {
		return mongo.Pipeline{
			{{Key: "$match", Value: match}},
			{{Key: "$addFields", Value: bson.M{pathField: name}}},
		}
	}

	pipeline := branch(names[0])
	for _, name := range names[1:] {
		pipeline = append(pipeline, bson.D{{Key: "$unionWith", Value: bson.M{
			"coll":     name,
			"pipeline": branch(name),
		}}})
	}
	if sort := sortSpec(q); sort != nil {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})
	}

	cur, err := s.db.Collection(names[0]).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []docstore.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		path, _ := raw[pathField].(string)
		delete(raw, pathField)
		out = append(out, toDocument(path, raw))
	}
	return out, cur.Err()
}

func matchFilter(where []docstore.Filter) bson.M {
	f := bson.M{}
	for _, w := range where {
		switch w.Op {
		case docstore.OpNe:
			f[w.Field] = bson.M{"$ne": w.Value}
		default:
			f[w.Field] = w.Value
		}
	}
	return f
}

func sortSpec(q docstore.Query) bson.D {
	if q.OrderBy == "" {
		return nil
	}
	dir := 1
	if q.Desc {
		dir = -1
	}
	return bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}}
}
