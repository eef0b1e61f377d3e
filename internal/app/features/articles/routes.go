// internal/app/features/articles/routes.go
package articles

import "github.com/go-chi/chi/v5"

// Routes mounts under /api/articles; the caller applies the staff gate.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/stream", h.ServeStream)
	r.Post("/", h.HandleCreate)
	r.Get("/{ownerType}/{ownerID}/{id}", h.ServePreview)
	r.Post("/{ownerType}/{ownerID}/{id}", h.HandleUpdate)
	r.Delete("/{ownerType}/{ownerID}/{id}", h.HandleDelete)
	return r
}
