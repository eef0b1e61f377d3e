// internal/app/features/articles/stream.go
package articles

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/live"
	articlestore "github.com/dalemusser/newsdesk/internal/app/store/articles"
	"github.com/dalemusser/newsdesk/internal/app/system/paging"
	"github.com/dalemusser/newsdesk/internal/app/system/sse"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeStream handles GET /api/articles/stream. It sends a "rows" event with
// the first page for every live snapshot until the client goes away. A
// failed subscription ends the stream with an "error" event.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	feed, err := live.Subscribe(ctx, h.Watcher, articlestore.LiveQuery(), h.mapArticle,
		live.WithName("articles-stream"), live.WithLogger(h.Log))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "subscribe articles", err, "Could not open the article stream.")
		return
	}
	defer feed.Cancel()

	out, err := sse.Start(w)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "start article stream", err, "Streaming is not supported.")
		return
	}

	v := h.newView(r)
	start := paging.ParseStart(r)
	tick := h.Tick
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-feed.Updates():
			if !ok {
				if ferr := feed.Err(); ferr != nil {
					_ = out.Send("error", map[string]string{"error": "The article stream stopped."})
				}
				return
			}
			octx, cancel := context.WithTimeout(ctx, timeouts.Short())
			h.resolveOwners(octx, list)
			cancel()
			v.SetSource(list)
			if err := out.Send("rows", page(v, start)); err != nil {
				h.Log.Debug("article stream closed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := out.Ping(); err != nil {
				return
			}
		}
	}
}
