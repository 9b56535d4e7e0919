package assessment

import (
	"context"
	"fmt"

	"github.com/jonathan/talent-compass/internal/confidence"
	"github.com/jonathan/talent-compass/internal/evolution"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
)

// InitializeProfile seeds the user's computed profile and records it as snapshot v1
func (s *Service) InitializeProfile(ctx context.Context, userID string, req types.ProfileRequest) (*types.ProfileSnapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	scores := make(map[types.Dimension]float64, len(req.DimensionScores))
	for label, score := range req.DimensionScores {
		dim, err := types.ParseDimensionStrict(label)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if _, dup := scores[dim]; dup {
			return nil, invalid("dimension %s given more than once", dim)
		}
		scores[dim] = score
	}

	profile := types.ComputedProfile{
		RIASECCode:       types.DeriveRIASECCode(scores),
		DimensionScores:  scores,
		ConfidenceScores: map[types.Dimension]float64{},
		Constraints:      req.Constraints,
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	existing, err := s.store.GetComputedProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrProfileExists)
	}
	count, err := s.store.CountSnapshots(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := types.ProfileSnapshot{
		Version:         evolution.NextVersion(count),
		Timestamp:       s.now().UTC(),
		ComputedProfile: profile.Clone(),
		DimensionScores: profile.Clone().DimensionScores,
		RIASECCode:      profile.RIASECCode,
		Trigger:         types.TriggerInitial,
	}
	if err := s.store.SaveEvolution(ctx, userID, profile, snap); err != nil {
		return nil, err
	}

	s.logger.Info("profile initialized",
		zap.String("user_id", userID),
		zap.String("riasec_code", profile.RIASECCode),
		zap.Int("dimensions", len(scores)))
	return &snap, nil
}

// Evolve applies one bounded update to the user's profile and persists the new snapshot.
// Evolutions for the same user are serialized so versions stay gap-free.
func (s *Service) Evolve(ctx context.Context, userID string, req types.EvolveRequest) (*evolution.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	profile, err := s.store.GetComputedProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrProfileNotFound)
	}
	count, err := s.store.CountSnapshots(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := evolution.Evolve(evolution.Input{
		Profile:     *profile,
		Signals:     req.Signals,
		Adjustments: req.Adjustments,
		Trigger:     req.Trigger,
		Version:     evolution.NextVersion(count),
		Now:         s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveEvolution(ctx, userID, result.Profile, result.Snapshot); err != nil {
		return nil, err
	}

	s.logger.Info("profile evolved",
		zap.String("user_id", userID),
		zap.Int("version", result.Snapshot.Version),
		zap.String("trigger", string(req.Trigger)),
		zap.String("riasec_code", result.Profile.RIASECCode),
		zap.Int("changed_dimensions", len(result.Deltas)))
	return &result, nil
}

// Profile returns the user's computed profile
func (s *Service) Profile(ctx context.Context, userID string) (*types.ComputedProfile, error) {
	profile, err := s.store.GetComputedProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrProfileNotFound)
	}
	return profile, nil
}

// Snapshots returns the user's profile history in version order
func (s *Service) Snapshots(ctx context.Context, userID string) ([]types.ProfileSnapshot, error) {
	snaps, err := s.store.ListSnapshots(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := evolution.CheckHistory(snaps); err != nil {
		return nil, fmt.Errorf("user %s history: %w", userID, err)
	}
	if snaps == nil {
		snaps = []types.ProfileSnapshot{}
	}
	return snaps, nil
}

// ConfidenceProfile returns the user's evidence confidence, empty when nothing is recorded
func (s *Service) ConfidenceProfile(ctx context.Context, userID string) (types.ConfidenceProfile, error) {
	profile, err := s.store.GetConfidenceProfile(ctx, userID)
	if err != nil {
		return types.ConfidenceProfile{}, err
	}
	if profile == nil {
		return types.ConfidenceProfile{Dimensions: map[types.Dimension]types.DimensionConfidence{}}, nil
	}
	if err := confidence.Verify(*profile); err != nil {
		return types.ConfidenceProfile{}, fmt.Errorf("user %s confidence: %w", userID, err)
	}
	return *profile, nil
}

// addSources folds new evidence into the confidence profile. The caller holds the user lock.
func (s *Service) addSources(ctx context.Context, userID string, sources []types.ConfidenceSource) error {
	if len(sources) == 0 {
		return nil
	}
	profile, err := s.ConfidenceProfile(ctx, userID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	for _, src := range sources {
		if src.Timestamp.IsZero() {
			src.Timestamp = now
		}
		profile, err = confidence.AddSource(profile, src, now)
		if err != nil {
			return err
		}
	}
	if err := s.store.SaveConfidenceProfile(ctx, userID, profile); err != nil {
		return err
	}
	s.logger.Debug("confidence updated",
		zap.String("user_id", userID),
		zap.Int("sources_added", len(sources)),
		zap.Float64("overall", profile.OverallConfidence))
	return nil
}
