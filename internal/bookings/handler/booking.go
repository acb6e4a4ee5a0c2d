package handler

import (
	"net/http"

	"campusbook/internal/bookings/service"
	httputil "campusbook/pkg/http"
	"campusbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Eligibility(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.Eligibility(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Eligibility", err)
		return
	}
	h.writeSuccess(w, "Eligibility", view)
}

// CheckIn accepts ?confirm=true once the user has acknowledged a warning.
func (h *BookingHandler) CheckIn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.CheckIn(r.Context(), ps.ByName("id"), httputil.QueryBool(r, "confirm"))
	if err != nil {
		h.writeError(w, "CheckIn", err)
		return
	}
	h.writeSuccess(w, "CheckIn", booking)
}

func (h *BookingHandler) CheckOut(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.CheckOut(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "CheckOut", err)
		return
	}
	h.writeSuccess(w, "CheckOut", booking)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings/:id/eligibility", h.Eligibility)
	router.POST("/api/v1/bookings/:id/check-in", h.CheckIn)
	router.POST("/api/v1/bookings/:id/check-out", h.CheckOut)
}
