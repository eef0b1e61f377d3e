package health

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// PingFunc checks the backing store. A nil PingFunc means there is nothing
// remote to check.
type PingFunc func(ctx context.Context) error

// Handler holds dependencies needed for health checks.
type Handler struct {
	Ping    PingFunc
	Backend string
	Log     *zap.Logger
}

// NewHandler constructs a health Handler. backend names the document store
// ("mongo" or "memory").
func NewHandler(ping PingFunc, backend string, logger *zap.Logger) *Handler {
	return &Handler{
		Ping:    ping,
		Backend: backend,
		Log:     logger,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "backend":"mongo", "database":"connected" }
//
// On store failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Backend: h.Backend, Database: "connected"}

	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
		defer cancel()

		if err := h.Ping(ctx); err != nil {
			h.Log.Error("health-check: ping failed", zap.Error(err))
			resp.Status = "error"
			resp.Database = "disconnected"
			resp.Message = "Database unavailable"
			resp.Error = err.Error()
			uierrors.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	uierrors.WriteJSON(w, http.StatusOK, resp)
}
