// internal/app/features/notifications/list.go
package notifications

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	"github.com/dalemusser/newsdesk/internal/app/system/paging"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/newsdesk/internal/app/viewmodel"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Rows   []viewmodel.NotificationRow               `json:"rows"`
	Range  paging.Range                              `json:"range"`
	Sort   viewmodel.Sort[viewmodel.NotificationKey] `json:"sort"`
	Filter viewmodel.NotificationFilter              `json:"filter"`
}

// newView builds a view from the q, faculty, grade, status, important, sort,
// dir and toggle query parameters.
func (h *Handler) newView(r *http.Request) *viewmodel.NotificationView {
	v := viewmodel.NewNotificationView(h.N)

	f := viewmodel.NotificationFilter{
		Query:   query.Get(r, "q"),
		Faculty: query.Get(r, "faculty"),
		Grade:   query.Get(r, "grade"),
		Status:  models.Status(query.Get(r, "status")),
	}
	if b, err := strconv.ParseBool(query.Get(r, "important")); err == nil {
		f.Important = &b
	}
	v.SetFilter(f)

	s := viewmodel.DefaultNotificationSort
	if k, ok := viewmodel.ParseNotificationKey(query.Get(r, "sort")); ok {
		s.Key = k
	}
	if d, ok := viewmodel.ParseDirection(query.Get(r, "dir")); ok {
		s.Dir = d
	}
	v.SetSort(s)
	if k, ok := viewmodel.ParseNotificationKey(query.Get(r, "toggle")); ok {
		v.ToggleSort(k)
	}
	return v
}

func page(v *viewmodel.NotificationView, start int) listResponse {
	rows, rng := paging.Slice(v.Rows(), start)
	return listResponse{Rows: rows, Range: rng, Sort: v.Sort(), Filter: v.Filter()}
}

// ServeList handles GET /api/notifications.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Notifications.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list notifications", err, "Could not load notifications.")
		return
	}
	v := h.newView(r)
	v.SetSource(list)
	uierrors.WriteJSON(w, http.StatusOK, page(v, paging.ParseStart(r)))
}
