// Package memstore is an in-process docstore.Store. It backs tests and the
// "memory" docstore setting for local development without MongoDB.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type record struct {
	seq  uint64
	data map[string]any
}

// Store keeps every collection in memory. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	colls    map[string]map[string]*record
	seq      uint64
	watchers map[*watcher]struct{}

	// failNext, when set, makes the next write return this error.
	failNext error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		colls:    map[string]map[string]*record{},
		watchers: map[*watcher]struct{}{},
	}
}

var _ docstore.Store = (*Store)(nil)

// FailNextWrite makes the next Add, Update or Delete fail with err.
func (s *Store) FailNextWrite(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *Store) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Store) Get(ctx context.Context, path, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.colls[path][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Path: path, Data: clone(rec.data)}, nil
}

// Put stores data under an explicit id, replacing any existing document.
// Used to seed owners and fixtures.
func (s *Store) Put(ctx context.Context, path, id string, data map[string]any) error {
	if !docstore.ValidCollectionPath(path) {
		return fmt.Errorf("memstore: invalid collection path %q", path)
	}
	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.seq++
	coll := s.colls[path]
	if coll == nil {
		coll = map[string]*record{}
		s.colls[path] = coll
	}
	coll[id] = &record{seq: s.seq, data: clone(data)}
	s.mu.Unlock()
	s.notify(path)
	return nil
}

func (s *Store) Add(ctx context.Context, path string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := primitive.NewObjectID().Hex()
	if err := s.Put(ctx, path, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, path, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return err
	}
	rec, ok := s.colls[path][id]
	if !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	for k, v := range clone(fields) {
		rec.data[k] = v
	}
	s.mu.Unlock()
	s.notify(path)
	return nil
}

func (s *Store) Delete(ctx context.Context, path, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.colls[path][id]; !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	delete(s.colls[path], id)
	s.mu.Unlock()
	s.notify(path)
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		doc docstore.Document
		seq uint64
	}
	var rows []row
	for path, coll := range s.colls {
		if !q.Matches(path) {
			continue
		}
		for id, rec := range coll {
			if !matchAll(rec.data, q.Where) {
				continue
			}
			rows = append(rows, row{
				doc: docstore.Document{ID: id, Path: path, Data: clone(rec.data)},
				seq: rec.seq,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if q.OrderBy != "" {
			c := compare(rows[i].doc.Data[q.OrderBy], rows[j].doc.Data[q.OrderBy])
			if q.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]docstore.Document, len(rows))
	for i, r := range rows {
		out[i] = r.doc
	}
	return out, nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colls[path])
}
