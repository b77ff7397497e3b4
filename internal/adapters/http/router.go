package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/convergelabs/onboarding-service/internal/config"
	"github.com/convergelabs/onboarding-service/internal/core/domain"
	"github.com/convergelabs/onboarding-service/internal/core/ports"
	"github.com/convergelabs/onboarding-service/internal/observability/metrics"
)

const backpressureAcquireTimeout = 50 * time.Millisecond

type errorResponse struct {
	Error string `json:"error"`
}

type Router struct {
	cfg        config.Config
	onboarding ports.OnboardingService
	documents  ports.DocumentService
	status     ports.StatusService
	metrics    *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	onboarding ports.OnboardingService,
	documents ports.DocumentService,
	status ports.StatusService,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:        cfg,
		onboarding: onboarding,
		documents:  documents,
		status:     status,
		metrics:    m,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/onboarding", rt.onboardingCollection)
	api.HandleFunc("/v1/onboarding/user/", rt.getOnboardingByOwner)
	api.HandleFunc("/v1/onboarding/files", rt.attachFile)
	api.HandleFunc("/v1/onboarding/files/", rt.fileByHandle)
	api.HandleFunc("/v1/onboarding/", rt.onboardingByID)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/", authMiddleware(rt.cfg.JWTSecret, api))
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	handler := http.Handler(mux)
	if rt.cfg.APIMaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrent, backpressureAcquireTimeout)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		burst := rt.cfg.APIRateLimitBurst
		if burst < 1 {
			burst = rt.cfg.APIRateLimitRPS
		}
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, burst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// onboardingCollection serves the bare /v1/onboarding path: owners create
// or merge their record with POST, admins list all records with GET.
func (rt *Router) onboardingCollection(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	switch r.Method {
	case http.MethodPost:
		var submission domain.Submission
		if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
			return
		}

		record, created, err := rt.onboarding.Upsert(r.Context(), principal, submission)
		if err != nil {
			writeError(w, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
			if rt.metrics != nil {
				rt.metrics.RecordRecordCreated("api")
			}
		}
		writeJSON(w, status, record)

	case http.MethodGet:
		records, err := rt.onboarding.ListAll(r.Context(), principal)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func (rt *Router) getOnboardingByOwner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	ownerID := strings.TrimPrefix(r.URL.Path, "/v1/onboarding/user/")
	if ownerID == "" || strings.Contains(ownerID, "/") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user id is required"})
		return
	}

	record, err := rt.onboarding.GetByOwner(r.Context(), principal, ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// onboardingByID serves /v1/onboarding/{id} and /v1/onboarding/{id}/status.
func (rt *Router) onboardingByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/onboarding/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "record id is required"})
		return
	}

	if id, found := strings.CutSuffix(rest, "/status"); found {
		rt.patchStatus(w, r, principal, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}

	switch r.Method {
	case http.MethodPut:
		var patch domain.Submission
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
			return
		}

		record, err := rt.onboarding.UpdateOwned(r.Context(), principal, rest, patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)

	case http.MethodDelete:
		if err := rt.onboarding.DeleteCascade(r.Context(), principal, rest); err != nil {
			writeError(w, err)
			return
		}
		if rt.metrics != nil {
			rt.metrics.RecordRecordDeleted("api")
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func (rt *Router) patchStatus(w http.ResponseWriter, r *http.Request, principal domain.Principal, recordID string) {
	if r.Method != http.MethodPatch {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	if recordID == "" || strings.Contains(recordID, "/") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "record id is required"})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	record, err := rt.status.SetStatus(r.Context(), principal, recordID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordStatusTransition("api", string(record.Status))
	}
	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), errorResponse{Error: err.Error()})
}
