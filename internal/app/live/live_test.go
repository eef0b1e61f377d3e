package live_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/live"
	"github.com/dalemusser/newsdesk/internal/app/records"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore/memstore"
)

type item struct {
	ID    string
	Title string
}

func mapItem(doc docstore.Document) (item, error) {
	title, _ := doc.Data["title"].(string)
	if title == "" {
		return item{}, &records.RejectError{ID: doc.ID, Path: doc.Path, Reason: "no title"}
	}
	return item{ID: doc.ID, Title: title}, nil
}

var query = docstore.Query{Collection: "items", OrderBy: "rank", Desc: true}

func next(t *testing.T, f *live.Feed[item]) []item {
	t.Helper()
	select {
	case list, ok := <-f.Updates():
		if !ok {
			t.Fatal("updates closed")
		}
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	return nil
}

func TestSubscribe_FullReplacementInStoreOrder(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	_ = s.Put(ctx, "items", "a", map[string]any{"title": "A", "rank": 1})
	_ = s.Put(ctx, "items", "b", map[string]any{"title": "B", "rank": 2})

	var kept, dropped int
	f, err := live.Subscribe(ctx, s, query, mapItem, live.WithSnapshotHook(func(k, d int) { kept, dropped = k, d }))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Cancel()

	first := next(t, f)
	if len(first) != 2 || first[0].ID != "b" || first[1].ID != "a" {
		t.Fatalf("first = %+v, want [b a]", first)
	}

	_ = s.Put(ctx, "items", "c", map[string]any{"rank": 3}) // no title: dropped
	second := next(t, f)
	if len(second) != 2 {
		t.Fatalf("malformed record should be dropped, got %+v", second)
	}
	if kept != 2 || dropped != 1 {
		t.Errorf("hook saw kept=%d dropped=%d", kept, dropped)
	}

	_ = s.Delete(ctx, "items", "a")
	third := next(t, f)
	if len(third) != 1 || third[0].ID != "b" {
		t.Fatalf("after delete = %+v", third)
	}

	cur, ok := f.Current()
	if !ok || len(cur) != 1 {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

func TestCancel_StopsDeliveryAndIsIdempotent(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	f, err := live.Subscribe(ctx, s, query, mapItem)
	if err != nil {
		t.Fatal(err)
	}
	next(t, f)

	f.Cancel()
	f.Cancel()

	_ = s.Put(ctx, "items", "late", map[string]any{"title": "Late"})
	select {
	case list, ok := <-f.Updates():
		if ok {
			t.Fatalf("received %+v after cancel", list)
		}
	case <-time.After(time.Second):
		t.Fatal("updates channel not closed after cancel")
	}
	if s.Watchers() != 0 {
		t.Errorf("watch not released: %d active", s.Watchers())
	}
	if cur, _ := f.Current(); len(cur) != 0 {
		t.Errorf("Current changed after cancel: %+v", cur)
	}
}

type failingWatcher struct{ err error }

func (w failingWatcher) Watch(ctx context.Context, q docstore.Query) (<-chan docstore.Snapshot, error) {
	ch := make(chan docstore.Snapshot, 2)
	ch <- docstore.Snapshot{Docs: []docstore.Document{{ID: "x", Data: map[string]any{"title": "X"}}}}
	ch <- docstore.Snapshot{Err: w.err}
	close(ch)
	return ch, nil
}

func TestSubscribe_ErrorKeepsLastList(t *testing.T) {
	boom := errors.New("watch broke")
	var hooked error
	f, err := live.Subscribe(context.Background(), failingWatcher{err: boom}, query, mapItem,
		live.WithErrorHook(func(err error) { hooked = err }))
	if err != nil {
		t.Fatal(err)
	}
	<-f.Done()

	if !errors.Is(f.Err(), boom) || !errors.Is(hooked, boom) {
		t.Errorf("Err() = %v, hook = %v", f.Err(), hooked)
	}
	cur, ok := f.Current()
	if !ok || len(cur) != 1 || cur[0].ID != "x" {
		t.Errorf("last good list lost: %+v", cur)
	}
	f.Cancel()
}

type refusingWatcher struct{}

func (refusingWatcher) Watch(context.Context, docstore.Query) (<-chan docstore.Snapshot, error) {
	return nil, errors.New("refused")
}

func TestSubscribe_WatchError(t *testing.T) {
	if _, err := live.Subscribe(context.Background(), refusingWatcher{}, query, mapItem); err == nil {
		t.Fatal("expected error from Watch to propagate")
	}
}
