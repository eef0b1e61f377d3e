// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the number of rows returned per list request.
const PageSize = 50

// ParseStart extracts the 1-based "start" query parameter.
// Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	s := query.Get(r, "start")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Range holds display range values for a page of results.
type Range struct {
	Start     int  `json:"start"` // 1-based; 0 if the page is empty
	End       int  `json:"end"`
	Total     int  `json:"total"`
	HasPrev   bool `json:"hasPrev"`
	HasNext   bool `json:"hasNext"`
	PrevStart int  `json:"prevStart"`
	NextStart int  `json:"nextStart"`
}

// Slice returns the page of rows beginning at the 1-based index start. The
// view rows are already filtered and sorted in memory, so paging is a plain
// window over them.
func Slice[T any](rows []T, start int) ([]T, Range) {
	return sliceWithSize(rows, start, PageSize)
}

func sliceWithSize[T any](rows []T, start, pageSize int) ([]T, Range) {
	total := len(rows)
	if start < 1 {
		start = 1
	}
	if start > total {
		return []T{}, Range{Total: total, PrevStart: prevStart(start, pageSize), NextStart: start, HasPrev: total > 0}
	}
	end := start - 1 + pageSize
	if end > total {
		end = total
	}
	page := rows[start-1 : end]
	return page, Range{
		Start:     start,
		End:       end,
		Total:     total,
		HasPrev:   start > 1,
		HasNext:   end < total,
		PrevStart: prevStart(start, pageSize),
		NextStart: end + 1,
	}
}

func prevStart(start, pageSize int) int {
	p := start - pageSize
	if p < 1 {
		return 1
	}
	return p
}
