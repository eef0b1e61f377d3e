// Package docstore defines the document database the console reads from and
// writes to.
//
// Documents live in collections addressed by slash-separated paths. Articles
// sit in per-owner sub-collections such as "companies/acme/news", so a path
// may have several segments; the final segment is the collection's own name.
// A group query spans every collection whose final segment matches.
//
// Two implementations exist: mongostore (MongoDB) and memstore (in process).
package docstore

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// Document is one stored record with its identity and location.
type Document struct {
	ID   string
	Path string
	Data map[string]any
}

// Segments splits Path into its parts.
func (d Document) Segments() []string { return Split(d.Path) }

// Op is a filter comparison.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
)

// Filter restricts a query to documents where Field Op Value holds.
// OpNe also matches documents that lack the field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects an ordered set of documents.
type Query struct {
	// Collection is a full path, or just the final segment when Group is set.
	Collection string
	Group      bool
	OrderBy    string
	Desc       bool
	Where      []Filter
}

// With returns a copy of q with an extra filter.
func (q Query) With(f Filter) Query {
	q.Where = append(append([]Filter(nil), q.Where...), f)
	return q
}

// Matches reports whether a collection path belongs to the query's scope.
func (q Query) Matches(path string) bool {
	if !q.Group {
		return path == q.Collection
	}
	segs := Split(path)
	return len(segs)%2 == 1 && segs[len(segs)-1] == q.Collection
}

// Reader fetches documents.
type Reader interface {
	Get(ctx context.Context, path, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
}

// Writer changes documents. Update merges fields into an existing document
// and fails with ErrNotFound if it is missing; Delete likewise.
type Writer interface {
	Add(ctx context.Context, path string, data map[string]any) (string, error)
	Update(ctx context.Context, path, id string, fields map[string]any) error
	Delete(ctx context.Context, path, id string) error
}

// Snapshot is one delivery from a watch: the complete, ordered result of the
// query at some moment, or the error that ended the watch.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Watcher streams full snapshots of a query. The first snapshot is sent as
// soon as the watch starts and another after every change that may affect the
// result. The channel closes when ctx is cancelled or after an error
// snapshot.
type Watcher interface {
	Watch(ctx context.Context, q Query) (<-chan Snapshot, error)
}

// Store is the full document database.
type Store interface {
	Reader
	Writer
	Watcher
}

// Join builds a path from segments.
func Join(segs ...string) string { return strings.Join(segs, "/") }

// Split breaks a path into non-empty segments.
func Split(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidCollectionPath reports whether path names a collection: an odd,
// non-zero number of non-empty segments.
func ValidCollectionPath(path string) bool {
	if strings.Contains(path, "//") || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return false
	}
	segs := Split(path)
	return len(segs) > 0 && len(segs)%2 == 1
}
