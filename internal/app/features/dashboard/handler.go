// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	articlestore "github.com/dalemusser/newsdesk/internal/app/store/articles"
	notificationstore "github.com/dalemusser/newsdesk/internal/app/store/notifications"
	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/newsdesk/internal/app/viewmodel"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"go.uber.org/zap"
)

// Snapshots supplies the latest live lists. ok is false until a feed has
// delivered its first list or after it has failed.
type Snapshots interface {
	Articles() ([]models.Article, bool)
	Notifications() ([]models.Notification, bool)
}

type Handler struct {
	Articles      *articlestore.Store
	Notifications *notificationstore.Store
	N             *datetime.Normalizer
	Live          Snapshots // optional; counts come from the stores when nil or not ready
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

func NewHandler(articles *articlestore.Store, notifications *notificationstore.Store, n *datetime.Normalizer, logger *zap.Logger) *Handler {
	return &Handler{
		Articles:      articles,
		Notifications: notifications,
		N:             n,
		ErrLog:        uierrors.NewErrorLogger(logger),
		Log:           logger,
	}
}

type dashboardResponse struct {
	Articles      viewmodel.ArticleStats      `json:"articles"`
	Notifications viewmodel.NotificationStats `json:"notifications"`
	AsOf          time.Time                   `json:"asOf"`
}

// ServeDashboard handles GET /api/dashboard.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		articles    []models.Article
		notices     []models.Notification
		haveArts    bool
		haveNotices bool
		err         error
	)
	if h.Live != nil {
		articles, haveArts = h.Live.Articles()
		notices, haveNotices = h.Live.Notifications()
	}

	if !haveArts {
		if articles, err = h.Articles.List(ctx); err != nil {
			h.ErrLog.LogServerError(w, r, "dashboard: list articles", err, "Could not load statistics.")
			return
		}
	}
	if !haveNotices {
		if notices, err = h.Notifications.List(ctx); err != nil {
			h.ErrLog.LogServerError(w, r, "dashboard: list notifications", err, "Could not load statistics.")
			return
		}
	}

	now := h.N.Now()
	uierrors.WriteJSON(w, http.StatusOK, dashboardResponse{
		Articles:      viewmodel.CountArticles(articles, now, h.N.Location()),
		Notifications: viewmodel.CountNotifications(notices, now),
		AsOf:          now,
	})
}
