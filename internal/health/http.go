package health

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// HTTPHandler serves health endpoints for probes and operators.
type HTTPHandler struct {
	manager *Manager
	logger  *zap.Logger
}

func NewHTTPHandler(manager *Manager, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{manager: manager, logger: logger}
}

// RegisterRoutes registers health endpoints on the given mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	mux.HandleFunc("/health/live", h.handleLiveness)
	mux.HandleFunc("/health/detailed", h.handleDetailedHealth)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	overall := h.manager.GetOverallHealth(r.Context())
	code := http.StatusOK
	if overall.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":  overall.Status.String(),
		"message": overall.Message,
	})
}

func (h *HTTPHandler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.manager.IsReady(r.Context()) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}

func (h *HTTPHandler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HTTPHandler) handleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	detailed := h.manager.GetDetailedHealth(r.Context())
	code := http.StatusOK
	if detailed.Overall.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, detailed)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
