// Package api exposes a ledger.Store over a local JSON HTTP interface for UI
// collaborators.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pocket-ledger/pkg/kv"
	"pocket-ledger/pkg/ledger"
	"pocket-ledger/pkg/logging"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// requestTimeout bounds every ledger call made on behalf of a request.
const requestTimeout = 5 * time.Second

// Server provides HTTP endpoints over a ledger.
type Server struct {
	store    *ledger.Store
	backend  kv.Store
	gatherer prometheus.Gatherer
	logger   *logging.Logger
	router   *mux.Router
	server   *http.Server
	config   ServerConfig
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Address to listen on (e.g., "127.0.0.1:8080")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      "127.0.0.1:8080",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// NewServer creates a new API server. backend is pinged by /ready; gatherer backs
// /metrics and may be nil, in which case the route is not registered.
func NewServer(store *ledger.Store, backend kv.Store, gatherer prometheus.Gatherer, config ServerConfig) *Server {
	s := &Server{
		store:    store,
		backend:  backend,
		gatherer: gatherer,
		logger:   logging.Global().Named("api").With(logging.Backend(backend.Name())),
		config:   config,
	}

	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	// Health and status endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// Accounts and transactions
	r.HandleFunc("/accounts", s.handleAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}/transactions", s.handleAccountTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleAddTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id}", s.handleRemoveTransaction).Methods(http.MethodDelete)
	r.HandleFunc("/transactions/{id}/undo", s.handleUndoRemove).Methods(http.MethodPost)

	// Goals
	r.HandleFunc("/goals", s.handleGoals).Methods(http.MethodGet)
	r.HandleFunc("/goals", s.handleAddGoal).Methods(http.MethodPost)
	r.HandleFunc("/goals/{id}/contributions", s.handleAddContribution).Methods(http.MethodPost)
	r.HandleFunc("/goals/{id}", s.handleRemoveGoal).Methods(http.MethodDelete)

	// Profile and summary
	r.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/profile", s.handleUpdateProfile).Methods(http.MethodPut)
	r.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)

	s.router = r
	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.logger.Info("api listening", zap.String("address", s.config.Address))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// handleReady reports 200 once the ledger has loaded and its backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.store.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": s.store.State().String(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := kv.Ping(ctx, s.backend); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unavailable",
			"backend": s.backend.Name(),
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ready",
		"backend": s.backend.Name(),
	})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": s.store.Accounts(),
	})
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	account, ok := s.store.Account(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: account %q", ledger.ErrNotFound, id))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":      account,
		"transactions": s.store.AccountTransactions(id),
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": s.store.Transactions(),
	})
}

type addTransactionRequest struct {
	Amount      ledger.Amount `json:"amount"`
	Description string        `json:"description"`
	Kind        string        `json:"kind"`
	AccountID   string        `json:"accountId"`
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kind, err := ledger.ParseTransactionKind(req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tx, err := s.store.AddTransaction(ctx, req.Amount, req.Description, kind, req.AccountID)
	respond(w, http.StatusCreated, err, ledger.MsgTransactionAdded, map[string]interface{}{
		"transaction": tx,
	})
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	undo, err := s.store.RemoveTransaction(ctx, id)
	respond(w, http.StatusOK, err, ledger.MsgTransactionRemoved, map[string]interface{}{
		"undo": undo,
	})
}

func (s *Server) handleUndoRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tx, err := s.store.UndoRemove(ctx, id)
	respond(w, http.StatusOK, err, ledger.MsgTransactionRestored, map[string]interface{}{
		"transaction": tx,
	})
}

// goalView adds the derived completion percentage to a goal.
type goalView struct {
	ledger.Goal
	Progress int `json:"progress"`
}

func viewGoal(g ledger.Goal) goalView {
	return goalView{Goal: g, Progress: g.Progress()}
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	goals := s.store.Goals()
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, viewGoal(g))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"goals":      views,
		"totalSaved": s.store.TotalSaved(),
	})
}

type addGoalRequest struct {
	Name         string        `json:"name"`
	TargetAmount ledger.Amount `json:"targetAmount"`
	TermValue    int           `json:"termValue"`
	TermUnit     string        `json:"termUnit"`
	IconTag      string        `json:"iconTag"`
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var req addGoalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	unit, err := ledger.ParseTermUnit(req.TermUnit)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	g, err := s.store.AddGoal(ctx, ledger.GoalInput{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		TermValue:    req.TermValue,
		TermUnit:     unit,
		IconTag:      req.IconTag,
	})
	respond(w, http.StatusCreated, err, ledger.MsgGoalAdded, map[string]interface{}{
		"goal": viewGoal(g),
	})
}

type contributionRequest struct {
	Amount ledger.Amount `json:"amount"`
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req contributionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	c, err := s.store.AddGoalContribution(ctx, id, req.Amount)
	body := map[string]interface{}{"contribution": c}
	if g, ok := s.store.Goal(id); ok {
		body["goal"] = viewGoal(g)
	}
	respond(w, http.StatusCreated, err, ledger.MsgContributionAdded, body)
}

func (s *Server) handleRemoveGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := s.store.RemoveGoal(ctx, mux.Vars(r)["id"])
	respond(w, http.StatusOK, err, ledger.MsgGoalRemoved, nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile": s.store.Profile(),
	})
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := s.store.UpdateProfile(ctx, req.DisplayName)
	respond(w, http.StatusOK, err, ledger.MsgProfileUpdated, map[string]interface{}{
		"profile": s.store.Profile(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary":    s.store.Summary(),
		"totalSaved": s.store.TotalSaved(),
		"profile":    s.store.Profile(),
	})
}

func transactionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: transaction id %q", ledger.ErrValidation, raw))
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, fmt.Errorf("%w: request body: %v", ledger.ErrValidation, err))
		return false
	}
	return true
}

// statusFor maps ledger error classes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotReady):
		return http.StatusServiceUnavailable
	case ledger.IsValidation(err):
		return http.StatusBadRequest
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respond writes the outcome of a mutation. After a persistence failure the mutation is
// still applied, so body is kept alongside the error.
func respond(w http.ResponseWriter, status int, err error, success string, body map[string]interface{}) {
	if err != nil && !ledger.IsPersistence(err) {
		writeError(w, err)
		return
	}
	if body == nil {
		body = map[string]interface{}{}
	}
	if err != nil {
		body["error"] = err.Error()
		body["message"] = ledger.FailureMessage(err)
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}
	body["message"] = success
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]interface{}{
		"error":   err.Error(),
		"message": ledger.FailureMessage(err),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// loggingMiddleware logs every request with its route template and status.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(srw, r)

		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", routeTemplate(r)),
			zap.Int("status", srw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// statusResponseWriter captures the status code
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}
	return tpl
}
