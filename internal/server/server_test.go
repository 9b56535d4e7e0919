package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/assessment"
	"github.com/jonathan/talent-compass/internal/db"
	"github.com/jonathan/talent-compass/internal/evaluator"
	"github.com/jonathan/talent-compass/internal/evolution"
	"github.com/jonathan/talent-compass/internal/schemas"
	"github.com/jonathan/talent-compass/internal/server/ratelimit"
	"github.com/jonathan/talent-compass/internal/timeline"
	"github.com/jonathan/talent-compass/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// mockService implements Service; unset funcs return zero values
type mockService struct {
	InitializeProfileFunc func(ctx context.Context, userID string, req types.ProfileRequest) (*types.ProfileSnapshot, error)
	ProfileFunc           func(ctx context.Context, userID string) (*types.ComputedProfile, error)
	EvolveFunc            func(ctx context.Context, userID string, req types.EvolveRequest) (*evolution.Result, error)
	SnapshotsFunc         func(ctx context.Context, userID string) ([]types.ProfileSnapshot, error)
	RecordQuizFunc        func(ctx context.Context, userID string, req types.QuizResultRequest) ([]types.QuizScore, error)
	ConnectSourceFunc     func(ctx context.Context, userID string, req types.DataSourceRequest) ([]types.Dimension, error)
	StateFunc             func(ctx context.Context, userID string) (types.AgentState, error)
	EvaluateFunc          func(ctx context.Context, userID string) ([]types.AgentAction, error)
	DecideFunc            func(ctx context.Context, userID string) (*types.AgentDecision, error)
	RecordOutcomeFunc     func(ctx context.Context, userID string, id uuid.UUID, outcome types.DecisionOutcome) (*types.AgentDecision, error)
	DecisionsFunc         func(ctx context.Context, userID string, limit int) ([]types.AgentDecision, error)
	CorrelateFunc         func(ctx context.Context, userID string, req *types.CorrelateRequest) (*types.CorrelationResult, error)
	GenerateReportFunc    func(ctx context.Context, userID string, req types.ReportRequest) (*types.ReportResult, error)
	LatestReportFunc      func(ctx context.Context, userID string) (*db.ReportRun, error)
	StartSessionFunc      func(userID string) (string, error)
	ObserveFunc           func(userID, sessionID string, req types.ObservationRequest) (types.SessionInsight, error)
	TimelineFunc          func(userID, sessionID string) (*assessment.TimelineView, error)
	EndSessionFunc        func(ctx context.Context, userID, sessionID string) (*assessment.SessionSummary, error)
}

func (m *mockService) InitializeProfile(ctx context.Context, userID string, req types.ProfileRequest) (*types.ProfileSnapshot, error) {
	if m.InitializeProfileFunc != nil {
		return m.InitializeProfileFunc(ctx, userID, req)
	}
	return &types.ProfileSnapshot{Version: 1}, nil
}

func (m *mockService) Profile(ctx context.Context, userID string) (*types.ComputedProfile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, userID)
	}
	return &types.ComputedProfile{}, nil
}

func (m *mockService) Evolve(ctx context.Context, userID string, req types.EvolveRequest) (*evolution.Result, error) {
	if m.EvolveFunc != nil {
		return m.EvolveFunc(ctx, userID, req)
	}
	return &evolution.Result{}, nil
}

func (m *mockService) Snapshots(ctx context.Context, userID string) ([]types.ProfileSnapshot, error) {
	if m.SnapshotsFunc != nil {
		return m.SnapshotsFunc(ctx, userID)
	}
	return []types.ProfileSnapshot{}, nil
}

func (m *mockService) ConfidenceProfile(context.Context, string) (types.ConfidenceProfile, error) {
	return types.ConfidenceProfile{Dimensions: map[types.Dimension]types.DimensionConfidence{}}, nil
}

func (m *mockService) RecordQuiz(ctx context.Context, userID string, req types.QuizResultRequest) ([]types.QuizScore, error) {
	if m.RecordQuizFunc != nil {
		return m.RecordQuizFunc(ctx, userID, req)
	}
	return nil, nil
}

func (m *mockService) ConnectSource(ctx context.Context, userID string, req types.DataSourceRequest) ([]types.Dimension, error) {
	if m.ConnectSourceFunc != nil {
		return m.ConnectSourceFunc(ctx, userID, req)
	}
	return nil, nil
}

func (m *mockService) State(ctx context.Context, userID string) (types.AgentState, error) {
	if m.StateFunc != nil {
		return m.StateFunc(ctx, userID)
	}
	return types.AgentState{UserID: userID}, nil
}

func (m *mockService) Evaluate(ctx context.Context, userID string) ([]types.AgentAction, error) {
	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockService) Decide(ctx context.Context, userID string) (*types.AgentDecision, error) {
	if m.DecideFunc != nil {
		return m.DecideFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockService) RecordOutcome(ctx context.Context, userID string, id uuid.UUID, outcome types.DecisionOutcome) (*types.AgentDecision, error) {
	if m.RecordOutcomeFunc != nil {
		return m.RecordOutcomeFunc(ctx, userID, id, outcome)
	}
	return &types.AgentDecision{ID: id, Outcome: outcome}, nil
}

func (m *mockService) Decisions(ctx context.Context, userID string, limit int) ([]types.AgentDecision, error) {
	if m.DecisionsFunc != nil {
		return m.DecisionsFunc(ctx, userID, limit)
	}
	return []types.AgentDecision{}, nil
}

func (m *mockService) Correlate(ctx context.Context, userID string, req *types.CorrelateRequest) (*types.CorrelationResult, error) {
	if m.CorrelateFunc != nil {
		return m.CorrelateFunc(ctx, userID, req)
	}
	return &types.CorrelationResult{Insights: []types.CorrelatedInsight{}}, nil
}

func (m *mockService) GenerateReport(ctx context.Context, userID string, req types.ReportRequest) (*types.ReportResult, error) {
	if m.GenerateReportFunc != nil {
		return m.GenerateReportFunc(ctx, userID, req)
	}
	return &types.ReportResult{}, nil
}

func (m *mockService) LatestReport(ctx context.Context, userID string) (*db.ReportRun, error) {
	if m.LatestReportFunc != nil {
		return m.LatestReportFunc(ctx, userID)
	}
	return nil, assessment.ErrReportNotFound
}

func (m *mockService) StartSession(userID string) (string, error) {
	if m.StartSessionFunc != nil {
		return m.StartSessionFunc(userID)
	}
	return "session-1", nil
}

func (m *mockService) Observe(userID, sessionID string, req types.ObservationRequest) (types.SessionInsight, error) {
	if m.ObserveFunc != nil {
		return m.ObserveFunc(userID, sessionID, req)
	}
	return types.SessionInsight{}, nil
}

func (m *mockService) Timeline(userID, sessionID string) (*assessment.TimelineView, error) {
	if m.TimelineFunc != nil {
		return m.TimelineFunc(userID, sessionID)
	}
	return &assessment.TimelineView{SessionID: sessionID}, nil
}

func (m *mockService) EndSession(ctx context.Context, userID, sessionID string) (*assessment.SessionSummary, error) {
	if m.EndSessionFunc != nil {
		return m.EndSessionFunc(ctx, userID, sessionID)
	}
	return &assessment.SessionSummary{SessionID: sessionID}, nil
}

var _ Service = (*mockService)(nil)

func newTestServer(svc Service) *Server {
	return New(svc, Config{RateLimit: &ratelimit.Config{Enabled: false}}, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func TestHealthEndpoint(t *testing.T) {
	w := do(t, newTestServer(&mockService{}).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeMap(t, w)["status"])

	unhealthy := New(&mockService{}, Config{
		RateLimit:   &ratelimit.Config{Enabled: false},
		HealthCheck: func(context.Context) error { return errors.New("db down") },
	}, zap.NewNop())
	w = do(t, unhealthy.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInitializeProfile(t *testing.T) {
	var got types.ProfileRequest
	svc := &mockService{
		InitializeProfileFunc: func(_ context.Context, userID string, req types.ProfileRequest) (*types.ProfileSnapshot, error) {
			assert.Equal(t, "u1", userID)
			got = req
			return &types.ProfileSnapshot{Version: 1, RIASECCode: "IAS", Trigger: types.TriggerInitial}, nil
		},
	}
	h := newTestServer(svc).Handler()

	w := do(t, h, http.MethodPost, "/users/u1/profile", `{"dimension_scores": {"investigative": 80}, "constraints": {"location": "remote"}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, map[string]float64{"investigative": 80}, got.DimensionScores)
	assert.Equal(t, "IAS", decodeMap(t, w)["riasec_code"])
}

func TestBodyErrors(t *testing.T) {
	h := newTestServer(&mockService{}).Handler()

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not json", "scores please"},
		{"unknown field", `{"dimension_scores": {"social": 1}, "extra": true}`},
		{"trailing data", `{"dimension_scores": {"social": 1}} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/users/u1/profile", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "bad_request", decodeMap(t, w)["error"])
		})
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exists", fmt.Errorf("user u1: %w", assessment.ErrProfileExists), http.StatusConflict},
		{"invalid", fmt.Errorf("%w: %w", assessment.ErrInvalidInput, types.ErrUnknownDimension), http.StatusUnprocessableEntity},
		{"schema", schemas.Fail(schemas.Report, "sections", "empty"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{
				InitializeProfileFunc: func(context.Context, string, types.ProfileRequest) (*types.ProfileSnapshot, error) {
					return nil, tt.err
				},
			}
			w := do(t, newTestServer(svc).Handler(), http.MethodPost, "/users/u1/profile", `{"dimension_scores": {"social": 1}}`)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, decodeMap(t, w)["message"], tt.err.Error())
		})
	}
}

func TestInternalErrorsAreLoggedNotLeaked(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := &mockService{
		ProfileFunc: func(context.Context, string) (*types.ComputedProfile, error) {
			return nil, errors.New("pq: password authentication failed")
		},
	}
	s := New(svc, Config{RateLimit: &ratelimit.Config{Enabled: false}}, zap.New(core))

	w := do(t, s.Handler(), http.MethodGet, "/users/u1/profile", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	failed := logs.FilterMessage("request failed").All()
	require.NotEmpty(t, failed)
	assert.Equal(t, "/users/u1/profile", failed[0].ContextMap()["path"])
}

func TestEvolve(t *testing.T) {
	svc := &mockService{
		EvolveFunc: func(_ context.Context, _ string, req types.EvolveRequest) (*evolution.Result, error) {
			assert.Equal(t, types.TriggerReflection, req.Trigger)
			assert.Equal(t, 12.0, req.Adjustments["social"])
			return &evolution.Result{
				Profile:  types.ComputedProfile{RIASECCode: "SIA"},
				Snapshot: types.ProfileSnapshot{Version: 4, RIASECCode: "SIA"},
				Deltas:   map[types.Dimension]float64{types.Social: 5},
			}, nil
		},
	}

	w := do(t, newTestServer(svc).Handler(), http.MethodPost, "/users/u1/profile/evolve",
		`{"adjustments": {"social": 12}, "signals": ["loves helping"], "trigger": "reflection"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp EvolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Version)
	assert.Equal(t, "SIA", resp.RIASECCode)
	assert.Equal(t, 5.0, resp.Deltas[types.Social])
}

func TestEvolve_InputErrorIs422(t *testing.T) {
	svc := &mockService{
		EvolveFunc: func(context.Context, string, types.EvolveRequest) (*evolution.Result, error) {
			return nil, &evolution.InputError{Field: "adjustments.charisma", Reason: "unknown dimension"}
		},
	}
	w := do(t, newTestServer(svc).Handler(), http.MethodPost, "/users/u1/profile/evolve",
		`{"adjustments": {"charisma": 1}, "trigger": "feedback"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDecide(t *testing.T) {
	h := newTestServer(&mockService{}).Handler()
	w := do(t, h, http.MethodPost, "/users/u1/decisions", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	id := uuid.New()
	svc := &mockService{
		DecideFunc: func(context.Context, string) (*types.AgentDecision, error) {
			return &types.AgentDecision{ID: id, Outcome: types.OutcomePending, Action: types.AgentAction{Type: types.ActionStartSession}}, nil
		},
	}
	w = do(t, newTestServer(svc).Handler(), http.MethodPost, "/users/u1/decisions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, id.String(), decodeMap(t, w)["id"])
}

func TestRecordOutcome(t *testing.T) {
	id := uuid.New()
	var calls int
	svc := &mockService{
		RecordOutcomeFunc: func(_ context.Context, userID string, got uuid.UUID, outcome types.DecisionOutcome) (*types.AgentDecision, error) {
			calls++
			assert.Equal(t, id, got)
			if calls > 1 {
				return nil, evaluator.ErrOutcomeResolved
			}
			return &types.AgentDecision{ID: got, UserID: userID, Outcome: outcome}, nil
		},
	}
	h := newTestServer(svc).Handler()
	path := "/users/u1/decisions/" + id.String() + "/outcome"

	w := do(t, h, http.MethodPost, "/users/u1/decisions/not-a-uuid/outcome", `{"outcome": "accepted"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, path, `{"outcome": "pending"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Zero(t, calls, "invalid outcomes never reach the service")

	w = do(t, h, http.MethodPost, path, `{"outcome": "accepted"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "accepted", decodeMap(t, w)["outcome"])

	w = do(t, h, http.MethodPost, path, `{"outcome": "rejected"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListDecisions_Limit(t *testing.T) {
	var got int
	svc := &mockService{
		DecisionsFunc: func(_ context.Context, _ string, limit int) ([]types.AgentDecision, error) {
			got = limit
			return []types.AgentDecision{}, nil
		},
	}
	h := newTestServer(svc).Handler()

	tests := []struct {
		query string
		code  int
		limit int
	}{
		{"", http.StatusOK, defaultDecisionLimit},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=100000", http.StatusOK, maxDecisionLimit},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=ten", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got = 0
			w := do(t, h, http.MethodGet, "/users/u1/decisions"+tt.query, "")
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.limit, got)
		})
	}
}

func TestActions_EmptyIsArray(t *testing.T) {
	w := do(t, newTestServer(&mockService{}).Handler(), http.MethodGet, "/users/u1/actions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actions": []}`, w.Body.String())
}

func TestCorrelate(t *testing.T) {
	var got *types.CorrelateRequest
	svc := &mockService{
		CorrelateFunc: func(_ context.Context, _ string, req *types.CorrelateRequest) (*types.CorrelationResult, error) {
			got = req
			return &types.CorrelationResult{Insights: []types.CorrelatedInsight{}, Summary: "none"}, nil
		},
	}
	h := newTestServer(svc).Handler()

	w := do(t, h, http.MethodPost, "/users/u1/correlations", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Empty(t, got.QuizScores, "empty body means stored evidence")

	w = do(t, h, http.MethodPost, "/users/u1/correlations", `{"signals": ["likes puzzles"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"likes puzzles"}, got.Signals)
}

func TestGenerateReport(t *testing.T) {
	svc := &mockService{
		GenerateReportFunc: func(_ context.Context, _ string, req types.ReportRequest) (*types.ReportResult, error) {
			assert.Equal(t, "keep it short", req.ReportPrompt)
			return &types.ReportResult{RunID: "run-1", Report: types.Report{Title: "Yours"}}, nil
		},
	}
	w := do(t, newTestServer(svc).Handler(), http.MethodPost, "/users/u1/reports", `{"report_prompt": "keep it short"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "run-1", decodeMap(t, w)["run_id"])

	w = do(t, newTestServer(&mockService{}).Handler(), http.MethodGet, "/users/u1/reports/latest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateReportStream(t *testing.T) {
	svc := &mockService{
		GenerateReportFunc: func(context.Context, string, types.ReportRequest) (*types.ReportResult, error) {
			return &types.ReportResult{
				RunID:  "run-7",
				Report: types.Report{Title: "Yours"},
				Trace: []types.ReportTraceStep{
					{Step: 1, Name: types.StepDraft},
					{Step: 2, Name: types.StepCritique},
					{Step: 3, Name: types.StepValidate},
				},
			}, nil
		},
	}
	w := do(t, newTestServer(svc).Handler(), http.MethodPost, "/users/u1/reports/stream", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, name)
		}
	}
	assert.Equal(t, []string{"started", "step", "step", "step", "report", "complete"}, events)
	assert.Contains(t, body, `"run_id":"run-7"`)
}

func TestGenerateReportStream_Failure(t *testing.T) {
	svc := &mockService{
		GenerateReportFunc: func(context.Context, string, types.ReportRequest) (*types.ReportResult, error) {
			return nil, fmt.Errorf("draft: %w", &schemas.DecodeError{Schema: schemas.Report, Cause: errors.New("eof")})
		},
	}
	w := do(t, newTestServer(svc).Handler(), http.MethodPost, "/users/u1/reports/stream", "")
	body := w.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, `"error":"inference_failed"`)
	assert.NotContains(t, body, "event: complete")
}

func TestGenerateReportStream_InternalErrorHidden(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := &mockService{
		GenerateReportFunc: func(context.Context, string, types.ReportRequest) (*types.ReportResult, error) {
			return nil, errors.New("pq: relation report_runs does not exist")
		},
	}
	s := New(svc, Config{RateLimit: &ratelimit.Config{Enabled: false}}, zap.New(core))

	w := do(t, s.Handler(), http.MethodPost, "/users/u1/reports/stream", "")
	body := w.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, "internal server error")
	assert.NotContains(t, body, "report_runs")
	require.Equal(t, 1, logs.FilterMessage("report stream failed").Len())
}

func TestSessions(t *testing.T) {
	svc := &mockService{
		ObserveFunc: func(userID, sessionID string, req types.ObservationRequest) (types.SessionInsight, error) {
			assert.Equal(t, "u1", userID)
			assert.Equal(t, "s-9", sessionID)
			return types.SessionInsight{Observation: req.Observation, Category: types.CategoryCuriosity, Confidence: req.Confidence}, nil
		},
		TimelineFunc: func(string, string) (*assessment.TimelineView, error) {
			return nil, fmt.Errorf("%w: s-404", timeline.ErrSessionNotFound)
		},
	}
	h := newTestServer(svc).Handler()

	w := do(t, h, http.MethodPost, "/users/u1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "session-1", decodeMap(t, w)["session_id"])

	w = do(t, h, http.MethodPost, "/users/u1/sessions/s-9/observations",
		`{"observation": "asked follow-ups", "category": "interest", "confidence": 0.7}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "curiosity", decodeMap(t, w)["category"])

	w = do(t, h, http.MethodGet, "/users/u1/sessions/s-404/timeline", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/users/u1/sessions/s-9/end", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-9", decodeMap(t, w)["session_id"])
}

func TestRateLimit(t *testing.T) {
	cfg := &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/users/*/reports", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	}
	s := New(&mockService{}, Config{RateLimit: cfg}, zap.NewNop())
	defer s.rateLimiter.Stop()
	h := s.Handler()

	w := do(t, h, http.MethodPost, "/users/u1/reports", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = do(t, h, http.MethodPost, "/users/u2/reports", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeMap(t, w)["error"])

	w = do(t, h, http.MethodGet, "/users/u1/state", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	w := do(t, newTestServer(&mockService{}).Handler(), http.MethodOptions, "/users/u1/reports", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRouteIs404(t *testing.T) {
	w := do(t, newTestServer(&mockService{}).Handler(), http.MethodGet, "/users/u1/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
