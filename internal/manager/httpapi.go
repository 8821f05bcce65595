package manager

import (
	"encoding/json"
	"net/http"

	"github.com/antonlukisha/md5-cracker/internal/apperr"
	"github.com/antonlukisha/md5-cracker/internal/model"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires the manager's HTTP surface: the crack/status API, a
// liveness probe, the JSON manager metrics, and the Prometheus exposition
// endpoint.
func NewRouter(svc *Service, logger *zap.Logger) *mux.Router {
	h := &httpHandlers{svc: svc, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/api/hash/crack", h.crack).Methods(http.MethodPost)
	r.HandleFunc("/api/hash/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/metrics/manager", h.managerMetrics).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

type httpHandlers struct {
	svc    *Service
	logger *zap.Logger
}

type crackRequest struct {
	Hash      string `json:"hash"`
	MaxLength int    `json:"maxLength"`
}

type crackResponse struct {
	RequestID string `json:"requestId"`
}

func (h *httpHandlers) crack(w http.ResponseWriter, r *http.Request) {
	var req crackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("malformed request body"))
		return
	}

	requestID, err := h.svc.Submit(r.Context(), req.Hash, req.MaxLength)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, crackResponse{RequestID: requestID})
}

func (h *httpHandlers) status(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("requestId")
	if requestID == "" {
		writeError(w, apperr.Validation("requestId query parameter is required"))
		return
	}

	result, err := h.svc.GetStatus(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}

	// The wire shape differs by status (spec.md §6): IN_PROGRESS always
	// carries progress, READY always carries results (even empty), and
	// ERROR carries neither. omitempty on a shared struct would silently
	// drop progress=0 and results=[] from the response, so each status
	// gets its own literal payload instead.
	switch result.Status {
	case model.RequestInProgress:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   string(result.Status),
			"progress": result.Progress,
		})
	case model.RequestReady:
		results := result.Results
		if results == nil {
			results = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  string(result.Status),
			"results": results,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": string(result.Status),
		})
	}
}

func (h *httpHandlers) health(w http.ResponseWriter, r *http.Request) {
	health := h.svc.Health(r.Context())
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"healthy":    health.Healthy,
		"components": health.Components,
	})
}

func (h *httpHandlers) managerMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Metrics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests": m.Requests,
		"tasks":    m.Tasks,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	if appErr, ok := apperr.As(err); ok {
		message = appErr.Message
		switch appErr.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindTransportTransient, apperr.KindTransportPermanent:
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, map[string]string{"error": message})
}
