// internal/app/features/files/routes.go
package files

import "github.com/go-chi/chi/v5"

// Routes mounts under the blob URL prefix (e.g., "/files").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/*", h.ServeFile)
	return r
}
