// internal/app/features/articles/list.go
package articles

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	"github.com/dalemusser/newsdesk/internal/app/system/paging"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/newsdesk/internal/app/viewmodel"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Rows   []viewmodel.ArticleRow               `json:"rows"`
	Range  paging.Range                         `json:"range"`
	Sort   viewmodel.Sort[viewmodel.ArticleKey] `json:"sort"`
	Filter viewmodel.ArticleFilter              `json:"filter"`
}

// newView builds a view from the q, owner, owner_type, sort, dir and toggle
// query parameters.
func (h *Handler) newView(r *http.Request) *viewmodel.ArticleView {
	v := viewmodel.NewArticleView(h.Owners, h.N)
	v.SetFilter(viewmodel.ArticleFilter{
		Query:     query.Get(r, "q"),
		Owner:     query.Get(r, "owner"),
		OwnerType: models.OwnerType(query.Get(r, "owner_type")),
	})

	s := viewmodel.DefaultArticleSort
	if k, ok := viewmodel.ParseArticleKey(query.Get(r, "sort")); ok {
		s.Key = k
	}
	if d, ok := viewmodel.ParseDirection(query.Get(r, "dir")); ok {
		s.Dir = d
	}
	v.SetSort(s)
	if k, ok := viewmodel.ParseArticleKey(query.Get(r, "toggle")); ok {
		v.ToggleSort(k)
	}
	return v
}

func page(v *viewmodel.ArticleView, start int) listResponse {
	rows, rng := paging.Slice(v.Rows(), start)
	return listResponse{Rows: rows, Range: rng, Sort: v.Sort(), Filter: v.Filter()}
}

// ServeList handles GET /api/articles.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Articles.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list articles", err, "Could not load articles.")
		return
	}
	h.resolveOwners(ctx, list)

	v := h.newView(r)
	v.SetSource(list)
	uierrors.WriteJSON(w, http.StatusOK, page(v, paging.ParseStart(r)))
}
