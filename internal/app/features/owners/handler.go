// internal/app/features/owners/handler.go
package owners

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	ownerstore "github.com/dalemusser/newsdesk/internal/app/store/owners"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Owners *ownerstore.Directory
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(owners *ownerstore.Directory, logger *zap.Logger) *Handler {
	return &Handler{Owners: owners, ErrLog: uierrors.NewErrorLogger(logger), Log: logger}
}

// option is one entry of the owner select list. Value is the "type:id" key
// the article form submits.
type option struct {
	Value string           `json:"value"`
	Type  models.OwnerType `json:"type"`
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Logo  string           `json:"logo,omitempty"`
}

// ServeList handles GET /api/owners: companies first, then media groups,
// each by name.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	all, err := h.Owners.All(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list owners", err, "Could not load owners.")
		return
	}
	out := make([]option, 0, len(all))
	for _, o := range all {
		out = append(out, option{Value: o.Key(), Type: o.Type, ID: o.ID, Name: o.Name, Logo: o.Logo})
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}
