package dashboard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/features/dashboard"
	articlestore "github.com/dalemusser/newsdesk/internal/app/store/articles"
	notificationstore "github.com/dalemusser/newsdesk/internal/app/store/notifications"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore/memstore"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/dalemusser/newsdesk/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*dashboard.Handler, *memstore.Store) {
	t.Helper()
	docs := testutil.NewMemStore()
	n, _ := testutil.NewNormalizer()
	logger := zap.NewNop()
	return dashboard.NewHandler(
		articlestore.New(docs, storage.NewMemory(storage.MemoryConfig{BaseURL: "/files"}), n, logger),
		notificationstore.New(docs, n, logger),
		n, logger,
	), docs
}

func TestServeDashboard(t *testing.T) {
	h, docs := newTestHandler(t)
	fx := testutil.NewFixtures(t, context.Background(), docs)

	at := func(d, hour int) time.Time { return time.Date(2024, 6, d, hour, 0, 0, 0, time.UTC) }
	fx.Article(models.Article{Title: "Today one", OwnerType: models.OwnerCompanies, OwnerID: "acme", Date: at(10, 1)})
	fx.Article(models.Article{Title: "This week", OwnerType: models.OwnerCompanies, OwnerID: "acme", Date: at(6, 9)})
	fx.Article(models.Article{Title: "Last month", OwnerType: models.OwnerMediaGroup, OwnerID: "press", Date: at(1, 9)})
	fx.Notification(models.Notification{Title: "Recent", IsImportant: true, PublishedAt: at(9, 9)})
	fx.Notification(models.Notification{Title: "Old", PublishedAt: at(1, 9)})

	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, testutil.WithStaff(testutil.NewRequest("GET", "/api/dashboard")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got struct {
		Articles      struct{ Total, Today, ThisWeek int } `json:"articles"`
		Notifications struct{ Total, Important, ThisWeek int } `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if a := got.Articles; a.Total != 3 || a.Today != 1 || a.ThisWeek != 2 {
		t.Errorf("articles = %+v, want {3 1 2}", a)
	}
	if n := got.Notifications; n.Total != 2 || n.Important != 1 || n.ThisWeek != 1 {
		t.Errorf("notifications = %+v, want {2 1 1}", n)
	}
}

func TestServeDashboard_StoreError(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, testutil.NewRequest("GET", "/api/dashboard").WithContext(ctx))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

// fixedSnapshots serves canned live lists.
type fixedSnapshots struct {
	articles      []models.Article
	notifications []models.Notification
	artsReady     bool
	notesReady    bool
}

func (s fixedSnapshots) Articles() ([]models.Article, bool) { return s.articles, s.artsReady }
func (s fixedSnapshots) Notifications() ([]models.Notification, bool) {
	return s.notifications, s.notesReady
}

func TestServeDashboard_LiveSnapshots(t *testing.T) {
	at := func(d, hour int) time.Time { return time.Date(2024, 6, d, hour, 0, 0, 0, time.UTC) }
	live := fixedSnapshots{
		articles: []models.Article{
			{Title: "Live today", OwnerType: models.OwnerCompanies, OwnerID: "acme", Date: at(10, 1)},
		},
		notifications: []models.Notification{
			{Title: "Live notice", IsImportant: true, PublishedAt: at(9, 9)},
			{Title: "Live old", PublishedAt: at(1, 9)},
		},
	}

	tests := []struct {
		name          string
		artsReady     bool
		notesReady    bool
		wantArticles  int
		wantNotices   int
		cancelRequest bool
		wantCode      int
	}{
		{"both ready", true, true, 1, 2, false, http.StatusOK},
		{"both ready ignore store errors", true, true, 1, 2, true, http.StatusOK},
		{"articles not ready", false, true, 2, 2, false, http.StatusOK},
		{"notifications not ready", true, false, 1, 1, false, http.StatusOK},
		{"not ready and store fails", false, false, 0, 0, true, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, docs := newTestHandler(t)
			fx := testutil.NewFixtures(t, context.Background(), docs)
			fx.Article(models.Article{Title: "Stored one", OwnerType: models.OwnerCompanies, OwnerID: "acme", Date: at(10, 2)})
			fx.Article(models.Article{Title: "Stored two", OwnerType: models.OwnerCompanies, OwnerID: "acme", Date: at(9, 2)})
			fx.Notification(models.Notification{Title: "Stored notice", PublishedAt: at(9, 9)})

			snap := live
			snap.artsReady, snap.notesReady = tc.artsReady, tc.notesReady
			h.Live = snap

			req := testutil.WithStaff(testutil.NewRequest("GET", "/api/dashboard"))
			if tc.cancelRequest {
				ctx, cancel := context.WithCancel(req.Context())
				cancel()
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()
			h.ServeDashboard(rec, req)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantCode != http.StatusOK {
				return
			}

			var got struct {
				Articles      struct{ Total int } `json:"articles"`
				Notifications struct{ Total int } `json:"notifications"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if got.Articles.Total != tc.wantArticles || got.Notifications.Total != tc.wantNotices {
				t.Errorf("totals = %d/%d, want %d/%d", got.Articles.Total, got.Notifications.Total,
					tc.wantArticles, tc.wantNotices)
			}
		})
	}
}
