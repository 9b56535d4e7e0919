package assessment

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/db"
	"github.com/jonathan/talent-compass/internal/types"
)

// memStore is an in-memory Store with the same conflict semantics as the database
type memStore struct {
	mu sync.Mutex

	computed     map[string]types.ComputedProfile
	confidence   map[string]types.ConfidenceProfile
	snapshots    map[string][]types.ProfileSnapshot
	sessions     map[string][]types.SessionInsight
	data         map[string]map[string]types.DataInsight
	quizzes      map[string][]types.QuizScore
	modules      map[string]map[string]string
	correlations map[string][]types.CorrelationResult
	decisions    map[uuid.UUID]types.AgentDecision
	runs         map[uuid.UUID]*db.ReportRun
	runOrder     []uuid.UUID

	failOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		computed:     map[string]types.ComputedProfile{},
		confidence:   map[string]types.ConfidenceProfile{},
		snapshots:    map[string][]types.ProfileSnapshot{},
		sessions:     map[string][]types.SessionInsight{},
		data:         map[string]map[string]types.DataInsight{},
		quizzes:      map[string][]types.QuizScore{},
		modules:      map[string]map[string]string{},
		correlations: map[string][]types.CorrelationResult{},
		decisions:    map[uuid.UUID]types.AgentDecision{},
		runs:         map[uuid.UUID]*db.ReportRun{},
		failOn:       map[string]error{},
	}
}

func (m *memStore) fail(op string) error {
	return m.failOn[op]
}

func (m *memStore) GetComputedProfile(_ context.Context, userID string) (*types.ComputedProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetComputedProfile"); err != nil {
		return nil, err
	}
	p, ok := m.computed[userID]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

func (m *memStore) GetConfidenceProfile(_ context.Context, userID string) (*types.ConfidenceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.confidence[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) SaveConfidenceProfile(_ context.Context, userID string, profile types.ConfidenceProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidence[userID] = profile
	return nil
}

func (m *memStore) insertSnapshot(userID string, snap types.ProfileSnapshot) error {
	for _, existing := range m.snapshots[userID] {
		if existing.Version == snap.Version {
			return fmt.Errorf("user %s version %d: %w", userID, snap.Version, db.ErrVersionConflict)
		}
	}
	m.snapshots[userID] = append(m.snapshots[userID], snap)
	return nil
}

func (m *memStore) SaveEvolution(_ context.Context, userID string, profile types.ComputedProfile, snap types.ProfileSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveEvolution"); err != nil {
		return err
	}
	if err := m.insertSnapshot(userID, snap); err != nil {
		return err
	}
	m.computed[userID] = profile.Clone()
	return nil
}

func (m *memStore) ListSnapshots(_ context.Context, userID string) ([]types.ProfileSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]types.ProfileSnapshot(nil), m.snapshots[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *memStore) CountSnapshots(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots[userID]), nil
}

func (m *memStore) InsertSessionInsights(_ context.Context, userID, _ string, insights []types.SessionInsight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertSessionInsights"); err != nil {
		return err
	}
	m.sessions[userID] = append(m.sessions[userID], insights...)
	return nil
}

func (m *memStore) ListSessionInsights(_ context.Context, userID string) ([]types.SessionInsight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.SessionInsight(nil), m.sessions[userID]...), nil
}

func (m *memStore) SaveDataInsight(_ context.Context, userID string, insight types.DataInsight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[userID] == nil {
		m.data[userID] = map[string]types.DataInsight{}
	}
	m.data[userID][insight.Source] = insight
	return nil
}

func (m *memStore) ListDataInsights(_ context.Context, userID string) ([]types.DataInsight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListDataInsights"); err != nil {
		return nil, err
	}
	var names []string
	for name := range m.data[userID] {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []types.DataInsight
	for _, name := range names {
		out = append(out, m.data[userID][name])
	}
	return out, nil
}

func (m *memStore) InsertQuizScores(_ context.Context, userID string, scores []types.QuizScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[userID] = append(m.quizzes[userID], scores...)
	return nil
}

func (m *memStore) ListQuizScores(_ context.Context, userID string) ([]types.QuizScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.QuizScore(nil), m.quizzes[userID]...), nil
}

func (m *memStore) SetModuleStatus(_ context.Context, userID, moduleID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modules[userID] == nil {
		m.modules[userID] = map[string]string{}
	}
	m.modules[userID][moduleID] = status
	return nil
}

func (m *memStore) ListModules(_ context.Context, userID string) ([]string, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var completed, inProgress []string
	for id, status := range m.modules[userID] {
		if status == db.ModuleCompleted {
			completed = append(completed, id)
		} else {
			inProgress = append(inProgress, id)
		}
	}
	sort.Strings(completed)
	sort.Strings(inProgress)
	return completed, inProgress, nil
}

func (m *memStore) SaveCorrelation(_ context.Context, userID string, result types.CorrelationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.correlations[userID] = append(m.correlations[userID], result)
	return nil
}

func (m *memStore) LatestCorrelation(_ context.Context, userID string) (*types.CorrelationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.correlations[userID]
	if len(list) == 0 {
		return nil, nil
	}
	r := list[len(list)-1]
	return &r, nil
}

func (m *memStore) InsertDecision(_ context.Context, d types.AgentDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[d.ID] = d
	return nil
}

func (m *memStore) GetDecision(_ context.Context, id uuid.UUID) (*types.AgentDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *memStore) UpdateDecisionOutcome(_ context.Context, id uuid.UUID, outcome types.DecisionOutcome) (*types.AgentDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return nil, nil
	}
	if d.Outcome != types.OutcomePending {
		return nil, fmt.Errorf("decision %s: %w", id, db.ErrDecisionResolved)
	}
	d.Outcome = outcome
	m.decisions[id] = d
	return &d, nil
}

func (m *memStore) ListDecisions(_ context.Context, userID string, limit int) ([]types.AgentDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.AgentDecision
	for _, d := range m.decisions {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CreateReportRun(_ context.Context, runID uuid.UUID, userID string, profileConfidence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runID] = &db.ReportRun{ID: runID, UserID: userID, Status: db.RunStatusRunning, ProfileConfidence: profileConfidence}
	m.runOrder = append(m.runOrder, runID)
	return nil
}

func (m *memStore) CompleteReportRun(_ context.Context, runID uuid.UUID, result *types.ReportResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("report run %s not found", runID)
	}
	rep, crit, conf := result.Report, result.Critique, result.Report.Confidence
	run.Status = db.RunStatusCompleted
	run.Report, run.Critique, run.Confidence = &rep, &crit, &conf
	run.Trace = append([]types.ReportTraceStep(nil), result.Trace...)
	return nil
}

func (m *memStore) FailReportRun(_ context.Context, runID uuid.UUID, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("report run %s not found", runID)
	}
	msg := cause.Error()
	run.Status = db.RunStatusFailed
	run.ErrorMessage = &msg
	return nil
}

func (m *memStore) LatestReport(_ context.Context, userID string) (*db.ReportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.runOrder) - 1; i >= 0; i-- {
		run := m.runs[m.runOrder[i]]
		if run.UserID == userID && run.Status == db.RunStatusCompleted {
			c := *run
			return &c, nil
		}
	}
	return nil, nil
}

var _ Store = (*memStore)(nil)
var _ Store = (*db.DB)(nil)

// gatedStore holds InsertSessionInsights until release is closed
type gatedStore struct {
	*memStore
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		memStore: newMemStore(),
		entered:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
}

func (g *gatedStore) InsertSessionInsights(ctx context.Context, userID, sessionID string, insights []types.SessionInsight) error {
	g.entered <- struct{}{}
	<-g.release
	return g.memStore.InsertSessionInsights(ctx, userID, sessionID, insights)
}
