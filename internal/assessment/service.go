// Package assessment is the request-level service: it loads a user's state from the store,
// runs the engines over it and persists what they produce.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/confidence"
	"github.com/jonathan/talent-compass/internal/correlation"
	"github.com/jonathan/talent-compass/internal/db"
	"github.com/jonathan/talent-compass/internal/report"
	"github.com/jonathan/talent-compass/internal/timeline"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
)

var (
	// ErrProfileNotFound is returned when the user has no computed profile yet
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists is returned when seeding a profile for a user who already has one
	ErrProfileExists = errors.New("profile already exists")
	// ErrDecisionNotFound is returned for an unknown decision id
	ErrDecisionNotFound = errors.New("decision not found")
	// ErrReportNotFound is returned when the user has no completed report
	ErrReportNotFound = errors.New("report not found")
	// ErrInvalidInput wraps caller mistakes found while interpreting a request
	ErrInvalidInput = errors.New("invalid input")
)

// Store is the persistence the service needs. *db.DB implements it.
type Store interface {
	GetComputedProfile(ctx context.Context, userID string) (*types.ComputedProfile, error)
	GetConfidenceProfile(ctx context.Context, userID string) (*types.ConfidenceProfile, error)
	SaveConfidenceProfile(ctx context.Context, userID string, profile types.ConfidenceProfile) error
	SaveEvolution(ctx context.Context, userID string, profile types.ComputedProfile, snap types.ProfileSnapshot) error
	ListSnapshots(ctx context.Context, userID string) ([]types.ProfileSnapshot, error)
	CountSnapshots(ctx context.Context, userID string) (int, error)

	InsertSessionInsights(ctx context.Context, userID, sessionID string, insights []types.SessionInsight) error
	ListSessionInsights(ctx context.Context, userID string) ([]types.SessionInsight, error)
	SaveDataInsight(ctx context.Context, userID string, insight types.DataInsight) error
	ListDataInsights(ctx context.Context, userID string) ([]types.DataInsight, error)
	InsertQuizScores(ctx context.Context, userID string, scores []types.QuizScore) error
	ListQuizScores(ctx context.Context, userID string) ([]types.QuizScore, error)
	SetModuleStatus(ctx context.Context, userID, moduleID, status string) error
	ListModules(ctx context.Context, userID string) (completed, inProgress []string, err error)
	SaveCorrelation(ctx context.Context, userID string, result types.CorrelationResult) error
	LatestCorrelation(ctx context.Context, userID string) (*types.CorrelationResult, error)

	InsertDecision(ctx context.Context, d types.AgentDecision) error
	GetDecision(ctx context.Context, id uuid.UUID) (*types.AgentDecision, error)
	UpdateDecisionOutcome(ctx context.Context, id uuid.UUID, outcome types.DecisionOutcome) (*types.AgentDecision, error)
	ListDecisions(ctx context.Context, userID string, limit int) ([]types.AgentDecision, error)

	CreateReportRun(ctx context.Context, runID uuid.UUID, userID string, profileConfidence float64) error
	CompleteReportRun(ctx context.Context, runID uuid.UUID, result *types.ReportResult) error
	FailReportRun(ctx context.Context, runID uuid.UUID, cause error) error
	LatestReport(ctx context.Context, userID string) (*db.ReportRun, error)
}

// Service wires the store to the engines
type Service struct {
	store      Store
	correlator *correlation.Correlator
	reporter   *report.Agent
	sessions   *timeline.Registry
	policy     confidence.Policy
	logger     *zap.Logger
	now        func() time.Time
	newID      func() uuid.UUID

	locks userLocks

	ownersMu sync.Mutex
	owners   map[string]string // session id -> user id
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces uuid.New for decisions, report runs and sessions
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithPolicy replaces the confidence gap policy
func WithPolicy(p confidence.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithRegistry supplies the live session registry
func WithRegistry(r *timeline.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.sessions = r
		}
	}
}

// New creates a Service. correlator and reporter may be nil when those features are unused.
func New(store Store, correlator *correlation.Correlator, reporter *report.Agent, opts ...Option) *Service {
	s := &Service{
		store:      store,
		correlator: correlator,
		reporter:   reporter,
		policy:     confidence.DefaultPolicy(),
		logger:     zap.NewNop(),
		now:        time.Now,
		newID:      uuid.New,
		owners:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = timeline.NewRegistry(timeline.WithClock(s.now))
	}
	return s
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// userLocks hands out one mutex per user id and forgets it when nobody holds it
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until the caller holds the user's lock and returns the release func
func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

// held reports how many users currently have a lock entry
func (l *userLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
