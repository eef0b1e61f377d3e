// internal/app/features/articles/preview.go
package articles

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	articlestore "github.com/dalemusser/newsdesk/internal/app/store/articles"
	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/pubstatus"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/newsdesk/internal/app/viewmodel"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type previewResponse struct {
	viewmodel.ArticleRow
	Status models.Status `json:"status"`
}

func identity(r *http.Request) (models.OwnerType, string, string) {
	return models.OwnerType(chi.URLParam(r, "ownerType")), chi.URLParam(r, "ownerID"), chi.URLParam(r, "id")
}

// ServePreview handles GET /api/articles/{ownerType}/{ownerID}/{id}: the
// article as readers will see it, with its owner, date label and status.
func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, ownerID, id := identity(r)
	a, err := h.Articles.Get(ctx, t, ownerID, id)
	if err != nil {
		h.ErrLog.Handle(w, r, "get article", err, articlestore.ErrNotFound)
		return
	}

	now := h.N.Now()
	uierrors.WriteJSON(w, http.StatusOK, previewResponse{
		ArticleRow: viewmodel.ArticleRow{
			Article:   a,
			OwnerName: h.Owners.Name(ctx, a.OwnerType, a.OwnerID),
			OwnerLogo: h.Owners.Logo(ctx, a.OwnerType, a.OwnerID),
			DateLabel: h.N.Format(a.Date, datetime.PatternDateTime),
		},
		Status: pubstatus.Classify(a.Date, now, h.N),
	})
}
