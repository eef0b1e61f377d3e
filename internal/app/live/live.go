// Package live keeps an in-memory list of entities in step with a store
// query.
//
// Every snapshot from the store is mapped in full and replaces the previous
// list; nothing is patched incrementally. Consumers read the newest list
// from Updates (older undelivered lists are discarded) or Current.
package live

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/newsdesk/internal/app/records"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"go.uber.org/zap"
)

// MapFunc converts one document. An error drops that document only.
type MapFunc[T any] func(docstore.Document) (T, error)

type settings struct {
	name       string
	log        *zap.Logger
	onSnapshot func(kept, dropped int)
	onError    func(error)
}

// Option configures Subscribe.
type Option func(*settings)

// WithName labels log lines and hooks, e.g. "articles".
func WithName(name string) Option { return func(s *settings) { s.name = name } }

// WithLogger sets the logger for dropped records and watch failures.
func WithLogger(l *zap.Logger) Option { return func(s *settings) { s.log = l } }

// WithSnapshotHook is called after each snapshot is mapped.
func WithSnapshotHook(fn func(kept, dropped int)) Option {
	return func(s *settings) { s.onSnapshot = fn }
}

// WithErrorHook is called when the watch fails.
func WithErrorHook(fn func(error)) Option { return func(s *settings) { s.onError = fn } }

// Feed is a running subscription.
type Feed[T any] struct {
	updates chan []T
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once

	mu      sync.RWMutex
	current []T
	ready   bool
	err     error
}

// Subscribe starts watching q. The returned Feed delivers the mapped list
// for the first snapshot and for every later one until Cancel is called,
// ctx ends, or the watch fails.
func Subscribe[T any](ctx context.Context, w docstore.Watcher, q docstore.Query, mapFn MapFunc[T], opts ...Option) (*Feed[T], error) {
	cfg := settings{name: q.Collection, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	snaps, err := w.Watch(ctx, q)
	if err != nil {
		cancel()
		return nil, err
	}

	f := &Feed[T]{
		updates: make(chan []T, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go f.run(ctx, snaps, mapFn, cfg)
	return f, nil
}

func (f *Feed[T]) run(ctx context.Context, snaps <-chan docstore.Snapshot, mapFn MapFunc[T], cfg settings) {
	defer close(f.done)
	defer close(f.updates)

	for snap := range snaps {
		if snap.Err != nil {
			cfg.log.Error("live subscription failed", zap.String("feed", cfg.name), zap.Error(snap.Err))
			f.mu.Lock()
			f.err = snap.Err
			f.mu.Unlock()
			if cfg.onError != nil {
				cfg.onError(snap.Err)
			}
			return
		}

		list := make([]T, 0, len(snap.Docs))
		dropped := 0
		for _, doc := range snap.Docs {
			v, err := mapFn(doc)
			if err != nil {
				dropped++
				var rej *records.RejectError
				if errors.As(err, &rej) {
					cfg.log.Warn("dropping malformed record",
						zap.String("feed", cfg.name),
						zap.String("id", rej.ID),
						zap.String("path", rej.Path),
						zap.String("reason", rej.Reason))
				} else {
					cfg.log.Warn("dropping record", zap.String("feed", cfg.name), zap.String("id", doc.ID), zap.Error(err))
				}
				continue
			}
			list = append(list, v)
		}
		if cfg.onSnapshot != nil {
			cfg.onSnapshot(len(list), dropped)
		}

		if ctx.Err() != nil {
			break
		}
		f.mu.Lock()
		f.current = list
		f.ready = true
		f.mu.Unlock()

		// Latest wins: replace any list the consumer has not taken yet.
		select {
		case <-f.updates:
		default:
		}
		f.updates <- list
	}

	if ctx.Err() != nil {
		// Cancelled: nothing queued may reach the consumer afterwards.
		select {
		case <-f.updates:
		default:
		}
	}
}

// Updates delivers each new list. It is closed when the feed stops.
func (f *Feed[T]) Updates() <-chan []T { return f.updates }

// Done is closed once the feed has stopped.
func (f *Feed[T]) Done() <-chan struct{} { return f.done }

// Current returns the most recent list and whether any snapshot has arrived.
// The slice must not be modified.
func (f *Feed[T]) Current() ([]T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current, f.ready
}

// Err returns the error that stopped the feed, if any. The last good list
// stays available through Current.
func (f *Feed[T]) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

// Cancel stops the feed and releases the underlying watch. It waits for
// delivery to stop and is safe to call more than once.
func (f *Feed[T]) Cancel() {
	f.once.Do(f.cancel)
	<-f.done
}
