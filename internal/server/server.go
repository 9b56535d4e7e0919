package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/assessment"
	"github.com/jonathan/talent-compass/internal/db"
	"github.com/jonathan/talent-compass/internal/evolution"
	"github.com/jonathan/talent-compass/internal/server/ratelimit"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
)

// Service is the assessment surface the API exposes. *assessment.Service implements it.
type Service interface {
	InitializeProfile(ctx context.Context, userID string, req types.ProfileRequest) (*types.ProfileSnapshot, error)
	Profile(ctx context.Context, userID string) (*types.ComputedProfile, error)
	Evolve(ctx context.Context, userID string, req types.EvolveRequest) (*evolution.Result, error)
	Snapshots(ctx context.Context, userID string) ([]types.ProfileSnapshot, error)
	ConfidenceProfile(ctx context.Context, userID string) (types.ConfidenceProfile, error)

	RecordQuiz(ctx context.Context, userID string, req types.QuizResultRequest) ([]types.QuizScore, error)
	ConnectSource(ctx context.Context, userID string, req types.DataSourceRequest) ([]types.Dimension, error)

	State(ctx context.Context, userID string) (types.AgentState, error)
	Evaluate(ctx context.Context, userID string) ([]types.AgentAction, error)
	Decide(ctx context.Context, userID string) (*types.AgentDecision, error)
	RecordOutcome(ctx context.Context, userID string, id uuid.UUID, outcome types.DecisionOutcome) (*types.AgentDecision, error)
	Decisions(ctx context.Context, userID string, limit int) ([]types.AgentDecision, error)

	Correlate(ctx context.Context, userID string, req *types.CorrelateRequest) (*types.CorrelationResult, error)
	GenerateReport(ctx context.Context, userID string, req types.ReportRequest) (*types.ReportResult, error)
	LatestReport(ctx context.Context, userID string) (*db.ReportRun, error)

	StartSession(userID string) (string, error)
	Observe(userID, sessionID string, req types.ObservationRequest) (types.SessionInsight, error)
	Timeline(userID, sessionID string) (*assessment.TimelineView, error)
	EndSession(ctx context.Context, userID, sessionID string) (*assessment.SessionSummary, error)
}

var _ Service = (*assessment.Service)(nil)

// maxBodyBytes caps request bodies; data source insights are the largest payloads
const maxBodyBytes = 1 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	svc         Service
	logger      *zap.Logger
	rateLimiter *ratelimit.Limiter
	healthCheck func(context.Context) error
}

// Config holds server configuration
type Config struct {
	Addr string
	// WriteTimeout must cover a full report generation.
	WriteTimeout time.Duration
	RateLimit    *ratelimit.Config
	// HealthCheck, when set, is run by GET /health (typically a database ping).
	HealthCheck func(context.Context) error
}

// New creates a new server instance
func New(svc Service, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}

	s := &Server{
		svc:         svc,
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		healthCheck: cfg.HealthCheck,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain around the router
func (s *Server) Handler() http.Handler {
	return s.withLogging(s.withRateLimit(s.withCORS(s.routes())))
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Profile and evolution
	mux.HandleFunc("POST /users/{user_id}/profile", s.handleInitializeProfile)
	mux.HandleFunc("GET /users/{user_id}/profile", s.handleGetProfile)
	mux.HandleFunc("POST /users/{user_id}/profile/evolve", s.handleEvolve)
	mux.HandleFunc("GET /users/{user_id}/profile/snapshots", s.handleListSnapshots)
	mux.HandleFunc("GET /users/{user_id}/confidence", s.handleGetConfidence)

	// Evidence
	mux.HandleFunc("POST /users/{user_id}/quizzes", s.handleRecordQuiz)
	mux.HandleFunc("POST /users/{user_id}/sources", s.handleConnectSource)

	// Agent decisions
	mux.HandleFunc("GET /users/{user_id}/state", s.handleGetState)
	mux.HandleFunc("GET /users/{user_id}/actions", s.handleListActions)
	mux.HandleFunc("POST /users/{user_id}/decisions", s.handleDecide)
	mux.HandleFunc("GET /users/{user_id}/decisions", s.handleListDecisions)
	mux.HandleFunc("POST /users/{user_id}/decisions/{decision_id}/outcome", s.handleRecordOutcome)

	// Inference
	mux.HandleFunc("POST /users/{user_id}/correlations", s.handleCorrelate)
	mux.HandleFunc("POST /users/{user_id}/reports", s.handleGenerateReport)
	mux.HandleFunc("POST /users/{user_id}/reports/stream", s.handleGenerateReportStream)
	mux.HandleFunc("GET /users/{user_id}/reports/latest", s.handleLatestReport)

	// Live sessions
	mux.HandleFunc("POST /users/{user_id}/sessions", s.handleStartSession)
	mux.HandleFunc("POST /users/{user_id}/sessions/{session_id}/observations", s.handleObserve)
	mux.HandleFunc("GET /users/{user_id}/sessions/{session_id}/timeline", s.handleTimeline)
	mux.HandleFunc("POST /users/{user_id}/sessions/{session_id}/end", s.handleEndSession)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.rateLimiter.Stop()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their per-route budget
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds structured request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Warn("request failed", fields...)
			return
		}
		s.logger.Info("request", fields...)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		if err := s.healthCheck(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{
		"error":   errorCode(status),
		"message": message,
	})
}

// writeError maps err to its status and writes it; unexpected failures are logged and
// their details withheld from the client
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// decodeBody reads a JSON request body into dst. An empty body is allowed when optional.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	if dec.More() {
		return &ErrValidation{Field: "body", Message: "unexpected data after JSON object"}
	}
	return nil
}

// userID reads the user_id path value
func userID(r *http.Request) (string, error) {
	id := r.PathValue("user_id")
	if id == "" || len(id) > 128 {
		return "", &ErrValidation{Field: "user_id", Message: "must be 1-128 characters"}
	}
	return id, nil
}

// queryInt parses an optional positive integer query parameter
func queryInt(r *http.Request, name string, def, limit int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &ErrValidation{Field: name, Message: "must be a positive integer"}
	}
	return min(n, limit), nil
}

// clientID identifies the caller for rate limiting by remote IP
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.UTC().Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Info("rate limit exceeded",
		zap.String("client", clientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
