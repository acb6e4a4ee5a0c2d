package health

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"campusbook/internal/session"
	httputil "campusbook/pkg/http"
	kafkamw "campusbook/pkg/kafka/middleware"
	"campusbook/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Check pings one backing dependency for /ready.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type SessionStatus interface {
	Status() session.Status
}

type Response struct {
	Status  string            `json:"status"`
	Session *session.Status   `json:"session,omitempty"`
	Kafka   *kafkamw.Snapshot `json:"kafka,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

type HealthHandler struct {
	checks  []Check
	session SessionStatus
	metrics *kafkamw.Metrics
	log     *logger.Logger
}

// NewHealthHandler accepts nil session and metrics; their sections are then
// left out of /health.
func NewHealthHandler(session SessionStatus, metrics *kafkamw.Metrics, log *logger.Logger, checks ...Check) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		session: session,
		metrics: metrics,
		log:     log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := Response{Status: "ok"}
	if h.session != nil {
		st := h.session.Status()
		resp.Session = &st
	}
	if h.metrics != nil {
		snap := h.metrics.Snapshot()
		resp.Kafka = &snap
	}

	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := Response{Status: "ready", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK

	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			h.log.Error("Dependency health check failed",
				"dependency", c.Name,
				"error", err,
				"path", r.URL.Path,
			)
			resp.Checks[c.Name] = "error"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
