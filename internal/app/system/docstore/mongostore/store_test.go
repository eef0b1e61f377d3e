package mongostore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore/mongostore"
	"github.com/dalemusser/newsdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStore_CRUD(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := mongostore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	when := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	id, err := s.Add(ctx, "companies/acme/news", map[string]any{
		"title": "Hello",
		"date":  when,
		"tags":  []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	doc, err := s.Get(ctx, "companies/acme/news", id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.ID != id || doc.Path != "companies/acme/news" {
		t.Errorf("identity = %s %s", doc.ID, doc.Path)
	}
	if _, has := doc.Data["_id"]; has {
		t.Error("_id should be stripped from data")
	}
	if dt, ok := doc.Data["date"].(primitive.DateTime); !ok || !dt.Time().Equal(when) {
		t.Errorf("date = %#v", doc.Data["date"])
	}
	if tags, ok := doc.Data["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("tags = %#v, want []any", doc.Data["tags"])
	}

	if err := s.Update(ctx, "companies/acme/news", id, map[string]any{"deleted": true}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	doc, _ = s.Get(ctx, "companies/acme/news", id)
	if doc.Data["deleted"] != true || doc.Data["title"] != "Hello" {
		t.Errorf("Update should merge, got %v", doc.Data)
	}

	if err := s.Delete(ctx, "companies/acme/news", id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "companies/acme/news", id); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Update(ctx, "companies/acme/news", id, map[string]any{"x": 1}); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Update missing = %v, want ErrNotFound", err)
	}
}

func TestStore_LegacyObjectID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := mongostore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	oid := primitive.NewObjectID()
	if _, err := db.Collection("notifications").InsertOne(ctx, bson.M{"_id": oid, "title": "legacy"}); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Get(ctx, "notifications", oid.Hex())
	if err != nil {
		t.Fatalf("Get legacy: %v", err)
	}
	if doc.ID != oid.Hex() || doc.Data["title"] != "legacy" {
		t.Errorf("legacy doc = %+v", doc)
	}
}

func TestStore_GroupQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := mongostore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.Put(ctx, "companies/a/news", "1", map[string]any{"date": day(1)}))
	must(s.Put(ctx, "media-group/b/news", "2", map[string]any{"date": day(3)}))
	must(s.Put(ctx, "companies/c/news", "3", map[string]any{"date": day(2), "deleted": true}))
	must(s.Put(ctx, "companies/c/news", "4", map[string]any{"date": day(2)}))
	must(s.Put(ctx, "companies/c/drafts", "5", map[string]any{"date": day(9)}))

	docs, err := s.Query(ctx, docstore.Query{
		Collection: "news",
		Group:      true,
		OrderBy:    "date",
		Desc:       true,
		Where:      []docstore.Filter{{Field: "deleted", Op: docstore.OpNe, Value: true}},
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	want := []struct{ id, path string }{
		{"2", "media-group/b/news"},
		{"4", "companies/c/news"},
		{"1", "companies/a/news"},
	}
	if len(docs) != len(want) {
		t.Fatalf("got %d docs, want %d", len(docs), len(want))
	}
	for i, w := range want {
		if docs[i].ID != w.id || docs[i].Path != w.path {
			t.Errorf("docs[%d] = %s@%s, want %s@%s", i, docs[i].ID, docs[i].Path, w.id, w.path)
		}
		if _, has := docs[i].Data["__path"]; has {
			t.Error("internal path field leaked into data")
		}
	}
}

func TestStore_WatchPolling(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := mongostore.New(db, zap.NewNop(), mongostore.WithPollingOnly(), mongostore.WithPollInterval(20*time.Millisecond))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ch, err := s.Watch(ctx, docstore.Query{Collection: "notifications", OrderBy: "createdAt", Desc: true})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	first := <-ch
	if first.Err != nil || len(first.Docs) != 0 {
		t.Fatalf("initial snapshot = %+v", first)
	}

	if _, err := s.Add(ctx, "notifications", map[string]any{"title": "one", "createdAt": time.Now()}); err != nil {
		t.Fatal(err)
	}

	select {
	case snap := <-ch:
		if snap.Err != nil || len(snap.Docs) != 1 {
			t.Fatalf("snapshot after add = %+v", snap)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no snapshot after add")
	}

	cancel()
	for range ch {
	}
}
