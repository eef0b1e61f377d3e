// internal/app/features/notifications/handler.go
package notifications

import (
	"time"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	"github.com/dalemusser/newsdesk/internal/app/records"
	notificationstore "github.com/dalemusser/newsdesk/internal/app/store/notifications"
	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the notification list and edit endpoints.
type Handler struct {
	Notifications *notificationstore.Store
	Watcher       docstore.Watcher
	N             *datetime.Normalizer

	// Tick is how often a stream re-evaluates publish status.
	Tick time.Duration

	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(store *notificationstore.Store, watcher docstore.Watcher, n *datetime.Normalizer, logger *zap.Logger) *Handler {
	return &Handler{
		Notifications: store,
		Watcher:       watcher,
		N:             n,
		Tick:          time.Minute,
		ErrLog:        uierrors.NewErrorLogger(logger),
		Log:           logger,
	}
}

func (h *Handler) mapNotification(doc docstore.Document) (models.Notification, error) {
	return records.MapNotification(doc, h.N)
}
