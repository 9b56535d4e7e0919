package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/assessment"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
)

// EvolveResponse is the result of one profile evolution
type EvolveResponse struct {
	Version    int                         `json:"version"`
	RIASECCode string                      `json:"riasec_code"`
	Profile    types.ComputedProfile       `json:"profile"`
	Snapshot   types.ProfileSnapshot       `json:"snapshot"`
	Deltas     map[types.Dimension]float64 `json:"deltas"`
}

// QuizResponse lists the stored scores of a quiz submission
type QuizResponse struct {
	ModuleID string            `json:"module_id"`
	Scores   []types.QuizScore `json:"scores"`
}

// SourceResponse names the dimensions a connected source was credited to
type SourceResponse struct {
	Source     string            `json:"source"`
	Dimensions []types.Dimension `json:"dimensions"`
}

// SessionResponse identifies a started session
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

const (
	defaultDecisionLimit = 20
	maxDecisionLimit     = 200
)

// -----------------------------------------------------------------------------
// Profile
// -----------------------------------------------------------------------------

func (s *Server) handleInitializeProfile(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.ProfileRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := s.svc.InitializeProfile(r.Context(), user, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, snap)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	profile, err := s.svc.Profile(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

func (s *Server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.EvolveRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.Evolve(r.Context(), user, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, EvolveResponse{
		Version:    result.Snapshot.Version,
		RIASECCode: result.Profile.RIASECCode,
		Profile:    result.Profile,
		Snapshot:   result.Snapshot,
		Deltas:     result.Deltas,
	})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snaps, err := s.svc.Snapshots(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"snapshots": snaps, "count": len(snaps)})
}

func (s *Server) handleGetConfidence(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	profile, err := s.svc.ConfidenceProfile(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// -----------------------------------------------------------------------------
// Evidence
// -----------------------------------------------------------------------------

func (s *Server) handleRecordQuiz(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.QuizResultRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	scores, err := s.svc.RecordQuiz(r.Context(), user, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, QuizResponse{ModuleID: req.ModuleID, Scores: scores})
}

func (s *Server) handleConnectSource(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.DataSourceRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	dims, err := s.svc.ConnectSource(r.Context(), user, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, SourceResponse{Source: req.Insight.Source, Dimensions: dims})
}

// -----------------------------------------------------------------------------
// Agent decisions
// -----------------------------------------------------------------------------

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.svc.State(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	actions, err := s.svc.Evaluate(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if actions == nil {
		actions = []types.AgentAction{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"actions": actions})
}

// handleDecide records the top action as a pending decision; 204 when nothing is left to do
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	decision, err := s.svc.Decide(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if decision == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.jsonResponse(w, http.StatusCreated, decision)
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultDecisionLimit, maxDecisionLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	decisions, err := s.svc.Decisions(r.Context(), user, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"decisions": decisions})
}

func (s *Server) handleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("decision_id"))
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "decision_id", Message: "must be a UUID"})
		return
	}
	var req types.OutcomeRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", assessment.ErrInvalidInput, err))
		return
	}

	decision, err := s.svc.RecordOutcome(r.Context(), user, id, req.Outcome)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, decision)
}

// -----------------------------------------------------------------------------
// Inference
// -----------------------------------------------------------------------------

// handleCorrelate correlates the evidence in the body, or the user's stored evidence when
// the body is empty
func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.CorrelateRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.Correlate(r.Context(), user, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.ReportRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.GenerateReport(r.Context(), user, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, result)
}

// streamHeartbeat is how often a comment line keeps an idle report stream open
var streamHeartbeat = 15 * time.Second

// handleGenerateReportStream runs a report generation over Server-Sent Events: a started
// event, heartbeats while the pipeline runs, one step event per trace step, then the report
// and a complete event. Failures end the stream with an error event.
func (s *Server) handleGenerateReportStream(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.ReportRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := sse.WriteEvent("started", map[string]string{"user_id": user}); err != nil {
		return
	}

	type outcome struct {
		result *types.ReportResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := s.svc.GenerateReport(r.Context(), user, req)
		done <- outcome{result, err}
	}()

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := sse.WriteHeartbeat(); err != nil {
				return
			}
		case out := <-done:
			if out.err != nil {
				status := HTTPStatus(out.err)
				msg := out.err.Error()
				if status == http.StatusInternalServerError {
					s.logger.Error("report stream failed", zap.String("user_id", user), zap.Error(out.err))
					msg = "internal server error"
				}
				sse.WriteError(errorCode(status), msg)
				return
			}
			for _, step := range out.result.Trace {
				if err := sse.WriteEvent("step", step); err != nil {
					return
				}
			}
			if err := sse.WriteEvent("report", out.result.Report); err != nil {
				return
			}
			sse.WriteComplete(out.result.RunID, "completed")
			return
		}
	}
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.svc.LatestReport(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// -----------------------------------------------------------------------------
// Live sessions
// -----------------------------------------------------------------------------

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.svc.StartSession(user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, SessionResponse{SessionID: id})
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.ObservationRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	insight, err := s.svc.Observe(user, r.PathValue("session_id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, insight)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.Timeline(user, r.PathValue("session_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.svc.EndSession(r.Context(), user, r.PathValue("session_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, summary)
}
