// internal/app/features/articles/handler.go
package articles

import (
	"context"
	"time"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	"github.com/dalemusser/newsdesk/internal/app/records"
	articlestore "github.com/dalemusser/newsdesk/internal/app/store/articles"
	ownerstore "github.com/dalemusser/newsdesk/internal/app/store/owners"
	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the article list, preview and edit endpoints.
type Handler struct {
	Articles *articlestore.Store
	Owners   *ownerstore.Directory
	Watcher  docstore.Watcher
	N        *datetime.Normalizer

	// MaxUpload bounds the thumbnail part of an edit request.
	MaxUpload int64
	// Tick is how often an idle stream is pinged.
	Tick time.Duration

	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(articles *articlestore.Store, owners *ownerstore.Directory, watcher docstore.Watcher,
	n *datetime.Normalizer, maxUpload int64, logger *zap.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = articlestore.DefaultMaxThumbnailBytes
	}
	return &Handler{
		Articles:  articles,
		Owners:    owners,
		Watcher:   watcher,
		N:         n,
		MaxUpload: maxUpload,
		Tick:      time.Minute,
		ErrLog:    uierrors.NewErrorLogger(logger),
		Log:       logger,
	}
}

func (h *Handler) mapArticle(doc docstore.Document) (models.Article, error) {
	return records.MapArticle(doc, h.N)
}

// resolveOwners loads owners the directory has not seen yet so rows show
// their names. Failures leave the unknown-owner label in place.
func (h *Handler) resolveOwners(ctx context.Context, list []models.Article) {
	seen := make(map[string]bool)
	for _, a := range list {
		k := a.OwnerKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := h.Owners.Lookup(a.OwnerType, a.OwnerID); ok {
			continue
		}
		_, _ = h.Owners.Get(ctx, a.OwnerType, a.OwnerID)
	}
}
