package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"campusbook/internal/notifications"
	apperrors "campusbook/pkg/errors"
	httputil "campusbook/pkg/http"
	"campusbook/pkg/logger"
	"campusbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	DefaultWait = 20 * time.Second
	MaxWait     = 25 * time.Second
)

type Inbox interface {
	List(ctx context.Context, limit int, offset int64) ([]model.Notification, int64, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	Subscribe() (<-chan model.Notification, func())
}

type NotificationHandler struct {
	inbox Inbox
	log   *logger.Logger
}

func NewNotificationHandler(inbox Inbox, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		inbox: inbox,
		log:   log,
	}
}

type listResponse struct {
	Data        []model.Notification `json:"data"`
	TotalCount  int64                `json:"total_count"`
	UnreadCount int                  `json:"unread_count"`
	Limit       int                  `json:"limit"`
	Offset      int64                `json:"offset"`
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	items, total, err := h.inbox.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "List", apperrors.Internal("Failed to read notifications", err))
		return
	}
	unread, err := h.inbox.UnreadCount(r.Context())
	if err != nil {
		h.writeError(w, "List", apperrors.Internal("Failed to read notifications", err))
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, listResponse{
		Data:        items,
		TotalCount:  total,
		UnreadCount: unread,
		Limit:       limit,
		Offset:      offset,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "List", "operation", "WriteJSON", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.inbox.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			h.writeError(w, "MarkRead", apperrors.NotFoundWithID("Notification", id))
			return
		}
		h.writeError(w, "MarkRead", apperrors.Internal("Failed to update notification", err))
		return
	}
	httputil.WriteNoContent(w)
}

// Next long-polls for the next notification. ?wait=15s bounds the wait;
// 204 means nothing arrived in time.
func (h *NotificationHandler) Next(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	wait := DefaultWait
	if raw := r.URL.Query().Get("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			h.writeError(w, "Next", apperrors.InvalidInput("invalid wait parameter: "+raw))
			return
		}
		wait = min(d, MaxWait)
	}

	ch, cancel := h.inbox.Subscribe()
	defer cancel()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case n, ok := <-ch:
		if !ok {
			httputil.WriteNoContent(w)
			return
		}
		if err := httputil.WriteSuccess(w, n); err != nil {
			h.log.Error("failed to write success response", "handler", "Next", "operation", "WriteSuccess", "error", err)
		}
	case <-timer.C:
		httputil.WriteNoContent(w)
	case <-r.Context().Done():
	}
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/notifications", h.List)
	router.GET("/api/v1/inbox/next", h.Next)
	router.POST("/api/v1/notifications/:id/read", h.MarkRead)
}
