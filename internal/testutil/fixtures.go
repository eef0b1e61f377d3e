package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/records"
	"github.com/dalemusser/newsdesk/internal/app/system/clock"
	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore/memstore"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// FixedNow is the reference time used by Fixtures and NewNormalizer.
var FixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

// NewNormalizer returns a UTC normalizer whose clock is a Manual set to
// FixedNow, along with the clock so tests can move time.
func NewNormalizer() (*datetime.Normalizer, *clock.Manual) {
	c := clock.NewManual(FixedNow)
	return datetime.New(c, zap.NewNop()), c
}

// NewMemStore returns an empty in-process document store.
func NewMemStore() *memstore.Store { return memstore.New() }

// Seeder writes a document under a chosen id. Both memstore and mongostore
// satisfy it.
type Seeder interface {
	Put(ctx context.Context, path, id string, data map[string]any) error
}

// Fixtures seeds domain records into a document store.
type Fixtures struct {
	t   *testing.T
	ctx context.Context
	s   Seeder
}

// NewFixtures creates a fixture helper bound to s.
func NewFixtures(t *testing.T, ctx context.Context, s Seeder) *Fixtures {
	return &Fixtures{t: t, ctx: ctx, s: s}
}

// Owner stores an owner document in its type's collection.
func (f *Fixtures) Owner(t models.OwnerType, id, name, logo string) models.Owner {
	f.t.Helper()
	data := map[string]any{"name": name}
	if logo != "" {
		data["logo"] = logo
	}
	if err := f.s.Put(f.ctx, string(t), id, data); err != nil {
		f.t.Fatalf("seed owner %s/%s: %v", t, id, err)
	}
	return models.Owner{ID: id, Type: t, Name: name, Logo: logo}
}

// Article stores a in its owner's news collection. A blank ID gets a fresh
// one and a zero Date becomes FixedNow.
func (f *Fixtures) Article(a models.Article) models.Article {
	f.t.Helper()
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	if a.Date.IsZero() {
		a.Date = FixedNow
	}
	if a.ImageURL == "" {
		a.ImageURL = models.PlaceholderImage
	}
	if err := f.s.Put(f.ctx, a.CollectionPath(), a.ID, records.ArticleFields(a)); err != nil {
		f.t.Fatalf("seed article %s: %v", a.ID, err)
	}
	return a
}

// Notification stores n in the notifications collection, filling ID,
// delivery type, PublishedAt and Status when unset.
func (f *Fixtures) Notification(n models.Notification) models.Notification {
	f.t.Helper()
	if n.ID == "" {
		n.ID = primitive.NewObjectID().Hex()
	}
	if n.DeliveryType == "" {
		n.DeliveryType = models.DeliveryImmediate
	}
	if n.PublishedAt.IsZero() {
		n.PublishedAt = FixedNow
	}
	if n.Status == "" {
		n.Status = models.StatusPublished
		if n.PublishedAt.After(FixedNow) {
			n.Status = models.StatusScheduled
		}
	}
	if n.TargetFaculties == nil {
		n.TargetFaculties = []string{models.AllTargets}
	}
	if n.TargetGrades == nil {
		n.TargetGrades = []string{models.AllTargets}
	}
	if err := f.s.Put(f.ctx, models.NotificationsCollection, n.ID, records.NotificationFields(n)); err != nil {
		f.t.Fatalf("seed notification %s: %v", n.ID, err)
	}
	return n
}
