package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	entitlementservice "gatehouse/contexts/access-control/entitlement-service"
	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	httptransport "gatehouse/contexts/access-control/entitlement-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "gatehouse/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	entitlement entitlementservice.Module
}

func New(entitlement entitlementservice.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		entitlement: entitlement,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Mux exposes the route table for in-process test servers.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/access/v1/grant-temporary-access", s.handleGrantTemporaryAccess)
	s.mux.HandleFunc("POST /api/access/v1/check-access", s.handleCheckAccess)
	s.mux.HandleFunc("POST /api/access/v1/process-payment-success", s.handleProcessPaymentSuccess)
	s.mux.HandleFunc("POST /api/access/v1/cleanup-expired", s.handleCleanupExpired)
	s.mux.HandleFunc("POST /api/access/v1/user-status", s.handleUserStatus)
}

func (s *Server) handleGrantTemporaryAccess(w http.ResponseWriter, r *http.Request) {
	var req httptransport.GrantTemporaryAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.entitlement.Handler.GrantTemporaryAccessHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	var req httptransport.CheckAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.entitlement.Handler.CheckAccessHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessPaymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req httptransport.ProcessPaymentSuccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.entitlement.Handler.ProcessPaymentSuccessHandler(
		r.Context(),
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCleanupExpired(w http.ResponseWriter, r *http.Request) {
	resp, err := s.entitlement.Handler.CleanupExpiredHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	var req httptransport.UserStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.entitlement.Handler.UserStatusHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeDomainError maps sentinel errors to status codes. Storage internals
// wrapped inside Unavailable-class errors never reach the response body.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrInvalidUserID),
		errors.Is(err, domainerrors.ErrInvalidDuration),
		errors.Is(err, domainerrors.ErrUnknownPlan):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domainerrors.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", domainerrors.ErrUserNotFound.Error())
	case errors.Is(err, domainerrors.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, "idempotency_conflict", domainerrors.ErrIdempotencyConflict.Error())
	case errors.Is(err, domainerrors.ErrAllPathsFailed):
		writeError(w, http.StatusInternalServerError, "all_paths_failed", domainerrors.ErrAllPathsFailed.Error())
	case errors.Is(err, domainerrors.ErrBackendUnavailable):
		writeError(w, http.StatusInternalServerError, "backend_unavailable", domainerrors.ErrBackendUnavailable.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Error:   code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
