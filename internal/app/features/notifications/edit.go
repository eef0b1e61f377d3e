// internal/app/features/notifications/edit.go
package notifications

import (
	"context"
	"encoding/json"
	"net/http"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	notificationstore "github.com/dalemusser/newsdesk/internal/app/store/notifications"
	"github.com/dalemusser/newsdesk/internal/app/system/limits"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
	"github.com/dalemusser/newsdesk/internal/app/viewmodel"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (notificationstore.NotificationInput, bool) {
	var in notificationstore.NotificationInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	if err := dec.Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "notification: decode body", err, "Invalid request body.")
		return in, false
	}
	return in, true
}

// ServeGet handles GET /api/notifications/{id}. The response is the list row
// for the notification, so it carries its current status and labels.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	nt, err := h.Notifications.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Handle(w, r, "get notification", err, notificationstore.ErrNotFound)
		return
	}
	v := viewmodel.NewNotificationView(h.N)
	v.SetSource([]models.Notification{nt})
	uierrors.WriteJSON(w, http.StatusOK, v.Rows()[0])
}

// HandleCreate handles POST /api/notifications.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	nt, err := h.Notifications.Create(ctx, in)
	if err != nil {
		h.ErrLog.Handle(w, r, "create notification", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, nt)
}

// HandleUpdate handles PUT /api/notifications/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	nt, err := h.Notifications.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		h.ErrLog.Handle(w, r, "update notification", err, notificationstore.ErrNotFound)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, nt)
}

// HandleDelete handles DELETE /api/notifications/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notifications.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.ErrLog.Handle(w, r, "delete notification", err, notificationstore.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
