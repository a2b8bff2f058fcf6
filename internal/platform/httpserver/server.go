package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	requestassignment "dispatch/contexts/field-operations/request-assignment"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	httptransport "dispatch/contexts/field-operations/request-assignment/transport/http"
	_ "dispatch/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	addr         string
	assignment   requestassignment.Module
	claimLimiter *ClaimLimiter
	metrics      http.Handler
	httpServer   *http.Server
}

type Option func(*Server)

// WithClaimLimiter throttles the pull claim route per provider.
func WithClaimLimiter(limiter *ClaimLimiter) Option {
	return func(s *Server) { s.claimLimiter = limiter }
}

// WithMetricsHandler mounts handler on GET /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) { s.metrics = handler }
}

func New(
	assignment requestassignment.Module,
	logger *slog.Logger,
	addr string,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		assignment: assignment,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/service-requests", s.handleCreateServiceRequest)
	s.mux.HandleFunc("GET /v1/service-requests/{request_id}", s.handleGetServiceRequest)
	s.mux.HandleFunc("POST /v1/service-requests/{request_id}/claim", s.handleClaimServiceRequest)
	s.mux.HandleFunc("GET /v1/providers/{provider_id}/claimable-requests", s.handleListClaimableRequests)
	s.mux.HandleFunc("POST /v1/providers/{provider_id}/capabilities", s.handleRegisterCapability)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateServiceRequest(w http.ResponseWriter, r *http.Request) {
	var req httptransport.CreateServiceRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAssignmentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.assignment.Handler.CreateServiceRequestHandler(r.Context(), req)
	if err != nil {
		s.writeAssignmentDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetServiceRequest(w http.ResponseWriter, r *http.Request) {
	resp, err := s.assignment.Handler.GetServiceRequestHandler(r.Context(), r.PathValue("request_id"))
	if err != nil {
		s.writeAssignmentDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListClaimableRequests(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeAssignmentError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	resp, err := s.assignment.Handler.ListClaimableRequestsHandler(r.Context(), r.PathValue("provider_id"), limit)
	if err != nil {
		s.writeAssignmentDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimServiceRequest(w http.ResponseWriter, r *http.Request) {
	providerID := strings.TrimSpace(r.Header.Get("X-Provider-Id"))
	if providerID == "" {
		writeAssignmentError(w, http.StatusUnauthorized, "missing_provider", "X-Provider-Id header is required")
		return
	}
	if s.claimLimiter != nil && !s.claimLimiter.Allow(providerID) {
		w.Header().Set("Retry-After", s.claimLimiter.RetryAfter())
		writeAssignmentError(w, http.StatusTooManyRequests, "rate_limited", "too many claim attempts")
		return
	}

	resp, err := s.assignment.Handler.ClaimServiceRequestHandler(r.Context(), providerID, r.PathValue("request_id"))
	if err != nil {
		s.writeAssignmentDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterCapability(w http.ResponseWriter, r *http.Request) {
	var req httptransport.RegisterCapabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAssignmentError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.assignment.Handler.RegisterCapabilityHandler(r.Context(), r.PathValue("provider_id"), req)
	if err != nil {
		s.writeAssignmentDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeAssignmentDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch domainerrors.Kind(err) {
	case domainerrors.KindValidation:
		writeAssignmentError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case domainerrors.KindNotFound:
		writeAssignmentError(w, http.StatusNotFound, notFoundCode(err), err.Error())
	case domainerrors.KindAuthorization:
		writeAssignmentError(w, http.StatusForbidden, "provider_not_capable", err.Error())
	case domainerrors.KindConflict:
		writeAssignmentError(w, http.StatusConflict, "claim_conflict", err.Error())
	case domainerrors.KindTransient:
		w.Header().Set("Retry-After", "1")
		writeAssignmentError(w, http.StatusServiceUnavailable, "store_unavailable", "record store unavailable, retry later")
	default:
		s.logger.Error("unhandled request assignment error",
			"event", "http_request_assignment_internal_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeAssignmentError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func notFoundCode(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrRequestNotFound):
		return "request_not_found"
	case errors.Is(err, domainerrors.ErrServiceNotFound):
		return "service_not_found"
	case errors.Is(err, domainerrors.ErrProviderInactive):
		return "provider_inactive"
	default:
		return "provider_not_found"
	}
}

func writeAssignmentError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
