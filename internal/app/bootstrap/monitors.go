// internal/app/bootstrap/monitors.go
package bootstrap

import (
	"context"
	"sync"

	"github.com/dalemusser/newsdesk/internal/app/live"
	"github.com/dalemusser/newsdesk/internal/app/records"
	articlestore "github.com/dalemusser/newsdesk/internal/app/store/articles"
	notificationstore "github.com/dalemusser/newsdesk/internal/app/store/notifications"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"go.uber.org/zap"
)

// Monitors are process-wide live feeds over the article and notification
// collections. They report snapshot and drop counts to metrics and keep the
// owner directory warm as new owners appear. Request streams subscribe
// their own feeds.
type Monitors struct {
	mu            sync.Mutex
	articles      *live.Feed[models.Article]
	notifications *live.Feed[models.Notification]
	wg            sync.WaitGroup
}

// Start subscribes both feeds. Calling Start twice is a no-op.
func (m *Monitors) Start(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.articles != nil {
		return nil
	}

	arts, err := live.Subscribe(ctx, deps.Docs, articlestore.LiveQuery(),
		func(doc docstore.Document) (models.Article, error) { return records.MapArticle(doc, deps.Normalizer) },
		live.WithName("articles"),
		live.WithLogger(logger),
		live.WithSnapshotHook(func(kept, dropped int) { deps.Metrics.RecordSnapshot("articles", kept, dropped) }),
		live.WithErrorHook(func(error) { deps.Metrics.RecordFeedError("articles") }))
	if err != nil {
		return err
	}

	notes, err := live.Subscribe(ctx, deps.Docs, notificationstore.LiveQuery(),
		func(doc docstore.Document) (models.Notification, error) {
			return records.MapNotification(doc, deps.Normalizer)
		},
		live.WithName("notifications"),
		live.WithLogger(logger),
		live.WithSnapshotHook(func(kept, dropped int) { deps.Metrics.RecordSnapshot("notifications", kept, dropped) }),
		live.WithErrorHook(func(error) { deps.Metrics.RecordFeedError("notifications") }))
	if err != nil {
		arts.Cancel()
		return err
	}

	m.articles, m.notifications = arts, notes

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		for list := range arts.Updates() {
			warmOwners(ctx, deps, list, logger)
		}
	}()
	go func() {
		defer m.wg.Done()
		for range notes.Updates() {
		}
	}()
	return nil
}

// Articles returns the latest article snapshot. ok is false before the
// first snapshot and once the feed has failed.
func (m *Monitors) Articles() ([]models.Article, bool) {
	m.mu.Lock()
	f := m.articles
	m.mu.Unlock()
	return current(f)
}

// Notifications returns the latest notification snapshot, like Articles.
func (m *Monitors) Notifications() ([]models.Notification, bool) {
	m.mu.Lock()
	f := m.notifications
	m.mu.Unlock()
	return current(f)
}

func current[T any](f *live.Feed[T]) ([]T, bool) {
	if f == nil || f.Err() != nil {
		return nil, false
	}
	return f.Current()
}

// Stop cancels both feeds and waits for their consumers.
func (m *Monitors) Stop() {
	m.mu.Lock()
	arts, notes := m.articles, m.notifications
	m.articles, m.notifications = nil, nil
	m.mu.Unlock()

	if arts != nil {
		arts.Cancel()
	}
	if notes != nil {
		notes.Cancel()
	}
	m.wg.Wait()
}

func warmOwners(ctx context.Context, deps DBDeps, list []models.Article, logger *zap.Logger) {
	seen := make(map[string]bool)
	for _, a := range list {
		k := a.OwnerKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := deps.Owners.Lookup(a.OwnerType, a.OwnerID); ok {
			continue
		}
		getCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
		if _, err := deps.Owners.Get(getCtx, a.OwnerType, a.OwnerID); err != nil {
			logger.Debug("owner not resolved", zap.String("owner", k), zap.Error(err))
		}
		cancel()
	}
}
