// Package server exposes the control surface over HTTP: instance lifecycle,
// backtests and optimization. Handlers stay thin: decode the request, call the
// owning component, encode the result.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/marketdata"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/orchestrator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/robustness"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/signal"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/simulator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// Server is the HTTP control surface.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener

	orch     *orchestrator.Orchestrator
	sim      *simulator.Simulator
	runner   *robustness.Runner
	engine   *signal.Engine
	provider marketdata.Provider
	log      *logger.Logger
}

// NewServer wires the routes. The server does not own its collaborators.
func NewServer(
	orch *orchestrator.Orchestrator,
	sim *simulator.Simulator,
	runner *robustness.Runner,
	engine *signal.Engine,
	provider marketdata.Provider,
	log *logger.Logger,
) *Server {
	s := &Server{
		orch:     orch,
		sim:      sim,
		runner:   runner,
		engine:   engine,
		provider: provider,
		log:      log,
	}

	router := mux.NewRouter()
	router.HandleFunc("/strategies/{id}/start", s.handleStart).Methods("POST")
	router.HandleFunc("/strategies/{id}/stop", s.handleStop).Methods("POST")
	router.HandleFunc("/strategies/{id}/pause", s.handlePause).Methods("POST")
	router.HandleFunc("/strategies/{id}/resume", s.handleResume).Methods("POST")
	router.HandleFunc("/strategies/{id}/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/backtest", s.handleBacktest).Methods("POST")
	router.HandleFunc("/optimize", s.handleOptimize).Methods("POST")
	s.router = router

	return s
}

// ServeHTTP makes the server usable as a plain handler in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on address and serves in the background. An empty address or
// ":0" picks a random port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create listener", err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.log.Error("http server error", zap.Error(err))
		}
	}()

	s.log.Info("control surface listening", zap.String("address", s.Address()))

	return nil
}

// Stop shuts the server down, draining in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Address returns the bound listen address.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  errors.ErrorCode `json:"code"`
}

// writeError maps the error taxonomy onto HTTP statuses: validation problems
// are the client's fault, missing data is unprocessable, lifecycle conflicts
// are conflicts, venue trouble is a bad gateway.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)

	status := http.StatusInternalServerError

	switch {
	case errors.HasCode(err, errors.ErrCodeAlreadyRunning):
		status = http.StatusConflict
	case errors.HasCode(err, errors.ErrCodeNotRunning), errors.HasCode(err, errors.ErrCodeDataNotFound):
		status = http.StatusNotFound
	case errors.IsValidation(err):
		status = http.StatusBadRequest
	case errors.IsData(err):
		status = http.StatusUnprocessableEntity
	case errors.IsExchange(err):
		status = http.StatusBadGateway
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidParameter, "malformed request body", err))

		return false
	}

	return true
}
