// internal/app/features/notifications/stream.go
package notifications

import (
	"net/http"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/live"
	notificationstore "github.com/dalemusser/newsdesk/internal/app/store/notifications"
	"github.com/dalemusser/newsdesk/internal/app/system/paging"
	"github.com/dalemusser/newsdesk/internal/app/system/sse"
	"go.uber.org/zap"
)

// ServeStream handles GET /api/notifications/stream. A "rows" event is sent
// for every live snapshot and again on every tick, so scheduled notices
// turn published without a write.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	feed, err := live.Subscribe(ctx, h.Watcher, notificationstore.LiveQuery(), h.mapNotification,
		live.WithName("notifications-stream"), live.WithLogger(h.Log))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "subscribe notifications", err, "Could not open the notification stream.")
		return
	}
	defer feed.Cancel()

	out, err := sse.Start(w)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "start notification stream", err, "Streaming is not supported.")
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

	ready := false
	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-feed.Updates():
			if !ok {
				if feed.Err() != nil {
					_ = out.Send("error", map[string]string{"error": "The notification stream stopped."})
				}
				return
			}
			v.SetSource(list)
			v.SetNow(h.N.Now())
			ready = true
		case <-ticker.C:
			if !ready {
				if err := out.Ping(); err != nil {
					return
				}
				continue
			}
			v.SetNow(h.N.Now())
		}
		if err := out.Send("rows", page(v, start)); err != nil {
			h.Log.Debug("notification stream closed", zap.Error(err))
			return
		}
	}
}
