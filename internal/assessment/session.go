package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/talent-compass/internal/timeline"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
)

// TimelineView is the derived state of a live session
type TimelineView struct {
	SessionID    string                        `json:"session_id"`
	Observations int                           `json:"observations"`
	Snapshots    []types.TimelineSnapshot      `json:"snapshots"`
	Trends       []types.BehavioralTrend       `json:"trends"`
	Correlations []types.BehavioralCorrelation `json:"correlations"`
	Narrative    string                        `json:"narrative"`
}

// SessionSummary is what ending a session persisted
type SessionSummary struct {
	SessionID  string            `json:"session_id"`
	Stored     int               `json:"stored"`
	Dimensions []types.Dimension `json:"dimensions"`
	Narrative  string            `json:"narrative"`
}

// StartSession opens a live session for the user and returns its id
func (s *Service) StartSession(userID string) (string, error) {
	id := s.newID().String()
	if err := s.sessions.Start(id); err != nil {
		return "", err
	}
	s.ownersMu.Lock()
	s.owners[id] = userID
	s.ownersMu.Unlock()

	s.logger.Info("session started", zap.String("user_id", userID), zap.String("session_id", id))
	return id, nil
}

// owned returns ErrSessionNotFound unless the session is live and belongs to the user
func (s *Service) owned(userID, sessionID string) error {
	s.ownersMu.Lock()
	owner, ok := s.owners[sessionID]
	s.ownersMu.Unlock()
	if !ok || owner != userID {
		return fmt.Errorf("%w: %s", timeline.ErrSessionNotFound, sessionID)
	}
	return nil
}

// Observe appends one behavioral observation to a live session
func (s *Service) Observe(userID, sessionID string, req types.ObservationRequest) (types.SessionInsight, error) {
	if err := req.Validate(); err != nil {
		return types.SessionInsight{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.owned(userID, sessionID); err != nil {
		return types.SessionInsight{}, err
	}

	category, err := types.ParseCategoryStrict(req.Category)
	if err != nil {
		return types.SessionInsight{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	insight := types.SessionInsight{
		Observation: strings.TrimSpace(req.Observation),
		Category:    category,
		Confidence:  req.Confidence,
		Evidence:    req.Evidence,
	}
	if req.Dimension != "" {
		dim, err := types.ParseDimensionStrict(req.Dimension)
		if err != nil {
			return types.SessionInsight{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		insight.Dimension = dim
	}
	if req.Timestamp != nil {
		insight.Timestamp = req.Timestamp.UTC()
	}

	err = s.sessions.With(sessionID, func(tl *timeline.Timeline) error {
		if err := tl.AddObservation(insight); err != nil {
			return err
		}
		obs := tl.Observations()
		insight = obs[len(obs)-1]
		return nil
	})
	if err != nil {
		return types.SessionInsight{}, err
	}
	return insight, nil
}

// Timeline returns trends, topic correlations and the narrative of a live session
func (s *Service) Timeline(userID, sessionID string) (*TimelineView, error) {
	if err := s.owned(userID, sessionID); err != nil {
		return nil, err
	}

	var view *TimelineView
	err := s.sessions.With(sessionID, func(tl *timeline.Timeline) error {
		view = &TimelineView{
			SessionID:    sessionID,
			Observations: tl.Len(),
			Snapshots:    tl.Snapshots(),
			Trends:       tl.ComputeTrends(),
			Correlations: tl.FindCorrelations(),
			Narrative:    tl.GenerateNarrative(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// EndSession persists the session's observations, credits session evidence to every tagged
// dimension and disposes of the timeline. The session stops accepting observations before
// anything is written; if the observations cannot be stored it is reopened unchanged.
func (s *Service) EndSession(ctx context.Context, userID, sessionID string) (*SessionSummary, error) {
	if err := s.owned(userID, sessionID); err != nil {
		return nil, err
	}

	tl, err := s.sessions.Close(sessionID)
	if err != nil {
		return nil, err
	}
	observations := tl.Observations()
	narrative := tl.GenerateNarrative()
	sources := sessionSources(observations)

	unlock := s.locks.lock(userID)
	err = s.store.InsertSessionInsights(ctx, userID, sessionID, observations)
	if err != nil {
		unlock()
		if rerr := s.sessions.Reopen(sessionID, tl); rerr != nil {
			s.logger.Error("failed to reopen session",
				zap.String("session_id", sessionID), zap.Error(rerr))
		}
		return nil, err
	}

	// the observations are stored, so the session is over even if crediting fails
	tl.Clear()
	s.ownersMu.Lock()
	delete(s.owners, sessionID)
	s.ownersMu.Unlock()

	err = s.addSources(ctx, userID, sources)
	unlock()
	if err != nil {
		return nil, err
	}

	dims := make([]types.Dimension, 0, len(sources))
	for _, src := range sources {
		dims = append(dims, src.Dimension)
	}
	s.logger.Info("session ended",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Int("observations", len(observations)),
		zap.Int("dimensions", len(dims)))

	return &SessionSummary{
		SessionID:  sessionID,
		Stored:     len(observations),
		Dimensions: dims,
		Narrative:  narrative,
	}, nil
}

// sessionSources turns dimension-tagged observations into one session source per dimension,
// scored by the mean observation confidence, in declaration order
func sessionSources(observations []types.SessionInsight) []types.ConfidenceSource {
	sums := make(map[types.Dimension]float64)
	counts := make(map[types.Dimension]int)
	last := make(map[types.Dimension]types.SessionInsight)
	for _, o := range observations {
		if o.Dimension == "" {
			continue
		}
		sums[o.Dimension] += o.Confidence
		counts[o.Dimension]++
		last[o.Dimension] = o
	}

	var out []types.ConfidenceSource
	for _, dim := range types.AllDimensions() {
		n := counts[dim]
		if n == 0 {
			continue
		}
		out = append(out, types.ConfidenceSource{
			Type:      types.SourceSession,
			Dimension: dim,
			Score:     sums[dim] / float64(n) * 100,
			Evidence:  fmt.Sprintf("%d live session observations, latest: %s", n, last[dim].Observation),
			Timestamp: last[dim].Timestamp,
		})
	}
	return out
}

// sessionNarrative returns the narrative of the user's live sessions, oldest id first
func (s *Service) sessionNarrative(userID string) string {
	var parts []string
	for _, id := range s.sessions.Active() {
		if s.owned(userID, id) != nil {
			continue
		}
		_ = s.sessions.With(id, func(tl *timeline.Timeline) error {
			if tl.Len() > 0 {
				parts = append(parts, tl.GenerateNarrative())
			}
			return nil
		})
	}
	return strings.Join(parts, "\n\n")
}
