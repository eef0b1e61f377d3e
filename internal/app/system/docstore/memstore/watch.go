package memstore

import (
	"context"

	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
)

type watcher struct {
	q     docstore.Query
	dirty chan struct{}
}

// Watch delivers an initial snapshot and a fresh one after every write to a
// collection in the query's scope. Writes that land while a snapshot is
// still being delivered are coalesced into one follow-up snapshot.
func (s *Store) Watch(ctx context.Context, q docstore.Query) (<-chan docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := &watcher{q: q, dirty: make(chan struct{}, 1)}
	w.dirty <- struct{}{}

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	out := make(chan docstore.Snapshot)
	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			delete(s.watchers, w)
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.dirty:
			}
			docs, err := s.Query(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case out <- docstore.Snapshot{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- docstore.Snapshot{Docs: docs}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *Store) notify(path string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for w := range s.watchers {
		if !w.q.Matches(path) {
			continue
		}
		select {
		case w.dirty <- struct{}{}:
		default:
		}
	}
}

// Watchers returns the number of active watches.
func (s *Store) Watchers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}
