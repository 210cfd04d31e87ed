package health

import (
	"encoding/json"
	"net/http"

	"github.com/lewisedginton/rota/pkg/logger"
)

// HealthResponse is the JSON body served by the health handlers.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Checks  map[string]CheckStatus `json:"checks,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// CheckStatus is one check in a HealthResponse.
type CheckStatus struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// LivenessHandler answers 200 when the liveness checks pass, 503 otherwise.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckLiveness(r.Context())
		h.write(w, status, err)
	}
}

// ReadinessHandler answers 200 when the readiness checks pass, 503 otherwise.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckReadiness(r.Context())
		h.write(w, status, err)
	}
}

// NewResponse converts a HealthStatus into its JSON shape.
func NewResponse(status *HealthStatus, err error) HealthResponse {
	resp := HealthResponse{Status: "healthy", Checks: make(map[string]CheckStatus, len(status.Checks))}
	if !status.Healthy {
		resp.Status = "unhealthy"
		if err != nil {
			resp.Message = err.Error()
		}
	}
	for _, c := range status.Checks {
		cs := CheckStatus{Status: "ok", Latency: c.Latency.String()}
		if !c.Healthy {
			cs.Status = "error"
			cs.Error = c.Error
		}
		resp.Checks[c.Name] = cs
	}
	return resp
}

func (h *HealthChecker) write(w http.ResponseWriter, status *HealthStatus, err error) {
	w.Header().Set("Content-Type", "application/json")
	if status.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if encErr := json.NewEncoder(w).Encode(NewResponse(status, err)); encErr != nil {
		h.logger.Error("Failed to encode health response", logger.ErrorField(encErr))
	}
}
