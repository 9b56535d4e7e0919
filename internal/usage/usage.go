// Package usage guards inference-service calls with a per-user daily character budget and
// records the size of every successful call. Recording never fails the caller.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
)

// Feature names recorded with each event
const (
	FeatureCorrelation    = "correlation"
	FeatureReportDraft    = "report_draft"
	FeatureReportCritique = "report_critique"
	FeatureReportRefine   = "report_refine"
)

// BudgetError means the user has spent their character budget for the current window
type BudgetError struct {
	UserID string
	Used   int64
	Limit  int64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("usage budget exceeded for user %s: %d of %d characters used", e.UserID, e.Used, e.Limit)
}

// IsBudgetExceeded reports whether err is, or wraps, a BudgetError
func IsBudgetExceeded(err error) bool {
	var be *BudgetError
	return errors.As(err, &be)
}

// Meter is what inference callers depend on: check before the call, record after it
type Meter interface {
	Allow(ctx context.Context, userID string) error
	Record(ctx context.Context, event types.UsageEvent)
}

// Store persists usage events
type Store interface {
	InsertUsageEvent(ctx context.Context, event types.UsageEvent) error
}

// Budget keeps a running character count per user
type Budget interface {
	Used(ctx context.Context, userID string) (int64, error)
	Add(ctx context.Context, userID string, chars int64) (int64, error)
}

// Tracker is the production Meter: events go to the store, sizes to the budget counter
type Tracker struct {
	store  Store
	budget Budget
	limit  int64
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker. A nil store or budget disables that half; limit <= 0 disables
// budget enforcement while still counting.
func NewTracker(store Store, budget Budget, limit int64, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		store:  store,
		budget: budget,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// Allow returns a BudgetError when the user's budget is spent. Counter failures fail open.
func (t *Tracker) Allow(ctx context.Context, userID string) error {
	if t.budget == nil || t.limit <= 0 {
		return nil
	}
	used, err := t.budget.Used(ctx, userID)
	if err != nil {
		t.logger.Warn("budget lookup failed, allowing call", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if used >= t.limit {
		return &BudgetError{UserID: userID, Used: used, Limit: t.limit}
	}
	return nil
}

// Record stores the event and adds its size to the budget. Failures are logged only.
func (t *Tracker) Record(ctx context.Context, event types.UsageEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = t.now().UTC()
	}

	if t.store != nil {
		if err := t.store.InsertUsageEvent(ctx, event); err != nil {
			t.logger.Warn("failed to record usage event",
				zap.String("user_id", event.UserID),
				zap.String("feature", event.Feature),
				zap.Error(err))
		}
	}
	if t.budget != nil {
		total, err := t.budget.Add(ctx, event.UserID, int64(event.InputChars+event.OutputChars))
		if err != nil {
			t.logger.Warn("failed to update usage budget", zap.String("user_id", event.UserID), zap.Error(err))
			return
		}
		t.logger.Debug("usage recorded",
			zap.String("user_id", event.UserID),
			zap.String("feature", event.Feature),
			zap.Int("input_chars", event.InputChars),
			zap.Int("output_chars", event.OutputChars),
			zap.Int64("window_total", total))
	}
}

// Nop is a Meter that allows everything and records nothing
type Nop struct{}

// Allow always succeeds
func (Nop) Allow(context.Context, string) error { return nil }

// Record does nothing
func (Nop) Record(context.Context, types.UsageEvent) {}
