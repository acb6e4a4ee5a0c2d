package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"campusbook/internal/session"
	apperrors "campusbook/pkg/errors"
	httputil "campusbook/pkg/http"
	"campusbook/pkg/logger"
	"campusbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type Manager interface {
	Status() session.Status
	Establish(ctx context.Context, result *model.RefreshResult) error
	Refresh(ctx context.Context) error
	VisibilityChanged(ctx context.Context, visible bool) error
	Logout(ctx context.Context, cause error) error
}

type SessionHandler struct {
	manager Manager
	log     *logger.Logger
}

func NewSessionHandler(manager Manager, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		log:     log,
	}
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

func (h *SessionHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SessionHandler) writeStatus(w http.ResponseWriter, handler string) {
	if err := httputil.WriteSuccess(w, h.manager.Status()); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) GetStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.writeStatus(w, "GetStatus")
}

// Establish takes the token pair the host received from login.
func (h *SessionHandler) Establish(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RefreshResult
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Establish", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.manager.Establish(r.Context(), &req); err != nil {
		if errors.Is(err, session.ErrMalformedToken) {
			h.writeError(w, "Establish", apperrors.Validation("token and refreshToken are required", nil))
			return
		}
		h.writeError(w, "Establish", apperrors.Internal("Failed to establish session", err))
		return
	}
	h.writeStatus(w, "Establish")
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.manager.Refresh(r.Context()); err != nil {
		h.writeError(w, "Refresh", apperrors.SessionExpired(err))
		return
	}
	h.writeStatus(w, "Refresh")
}

func (h *SessionHandler) Visibility(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Visible == nil {
		h.writeError(w, "Visibility", apperrors.InvalidInput("Body must be {\"visible\": true|false}"))
		return
	}

	if err := h.manager.VisibilityChanged(r.Context(), *req.Visible); err != nil {
		h.writeError(w, "Visibility", apperrors.SessionExpired(err))
		return
	}
	h.writeStatus(w, "Visibility")
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	_ = h.manager.Logout(r.Context(), nil)
	httputil.WriteNoContent(w)
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/session", h.GetStatus)
	router.PUT("/api/v1/session", h.Establish)
	router.DELETE("/api/v1/session", h.Logout)
	router.POST("/api/v1/session/refresh", h.Refresh)
	router.POST("/api/v1/session/visibility", h.Visibility)
}
