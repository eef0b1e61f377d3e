// internal/app/features/files/handler.go
package files

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	"github.com/dalemusser/newsdesk/internal/app/system/blobstore"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves uploaded thumbnails from the blob store.
type Handler struct {
	Blobs  storage.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(blobs storage.Store, logger *zap.Logger) *Handler {
	return &Handler{Blobs: blobs, ErrLog: uierrors.NewErrorLogger(logger), Log: logger}
}

// ServeFile handles GET /files/*. Object names are immutable, so responses
// may be cached for a long time.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if path == "" || strings.Contains(path, "..") {
		h.ErrLog.NotFound(w, "File not found.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rc, info, err := h.Blobs.GetWithInfo(ctx, path)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		h.ErrLog.NotFound(w, "File not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "open file", err, "Could not load the file.")
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", blobstore.ImageCacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Warn("file copy interrupted", zap.String("path", path), zap.Error(err))
	}
}
