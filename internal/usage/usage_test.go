package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

type mockStore struct {
	events []types.UsageEvent
	err    error
}

func (m *mockStore) InsertUsageEvent(_ context.Context, ev types.UsageEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

type mockBudget struct {
	used    int64
	added   int64
	usedErr error
	addErr  error
}

func (m *mockBudget) Used(context.Context, string) (int64, error) {
	return m.used, m.usedErr
}

func (m *mockBudget) Add(_ context.Context, _ string, chars int64) (int64, error) {
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.added += chars
	return m.used + m.added, nil
}

func fixedNow() time.Time {
	return time.Date(2025, 8, 9, 23, 59, 0, 0, time.UTC)
}

func TestRedisBudget(t *testing.T) {
	t.Run("add uses daily key and ttl", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 1200}
		b := &RedisBudget{client: mock, prefix: "usage:budget:", window: 24 * time.Hour, now: fixedNow}

		total, err := b.Add(context.Background(), " User-42 ", 700)
		require.NoError(t, err)
		assert.Equal(t, int64(1200), total)
		assert.Equal(t, []string{"usage:budget:user-42:20250809"}, mock.lastKeys)
		assert.Equal(t, []interface{}{int64(700), 86400}, mock.lastArgs)
		assert.Equal(t, redisBudgetAddScript, mock.lastScript)
	})

	t.Run("used reads the same key", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 55}
		b := &RedisBudget{client: mock, prefix: "usage:budget:", window: 24 * time.Hour, now: fixedNow}

		used, err := b.Used(context.Background(), "user-42")
		require.NoError(t, err)
		assert.Equal(t, int64(55), used)
		assert.Equal(t, []string{"usage:budget:user-42:20250809"}, mock.lastKeys)
		assert.Equal(t, redisBudgetGetScript, mock.lastScript)
	})

	t.Run("redis error surfaces", func(t *testing.T) {
		b := &RedisBudget{client: &mockRedisEvaler{err: errors.New("redis down")}, prefix: "p:", window: time.Hour, now: fixedNow}
		_, err := b.Used(context.Background(), "u")
		assert.Error(t, err)
	})

	t.Run("nil client", func(t *testing.T) {
		assert.Nil(t, NewRedisBudget(nil))
	})
}

func TestTracker_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("under limit", func(t *testing.T) {
		tr := NewTracker(nil, &mockBudget{used: 999}, 1000, nil)
		assert.NoError(t, tr.Allow(ctx, "u"))
	})

	t.Run("at limit is a budget error", func(t *testing.T) {
		tr := NewTracker(nil, &mockBudget{used: 1000}, 1000, nil)
		err := tr.Allow(ctx, "u")
		require.Error(t, err)
		assert.True(t, IsBudgetExceeded(err))

		var be *BudgetError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, int64(1000), be.Used)
	})

	t.Run("lookup failure fails open", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		tr := NewTracker(nil, &mockBudget{usedErr: errors.New("timeout")}, 10, zap.New(core))
		assert.NoError(t, tr.Allow(ctx, "u"))
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("no limit", func(t *testing.T) {
		tr := NewTracker(nil, &mockBudget{used: 1 << 40}, 0, nil)
		assert.NoError(t, tr.Allow(ctx, "u"))
	})
}

func TestTracker_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("stores event and counts characters", func(t *testing.T) {
		store := &mockStore{}
		budget := &mockBudget{}
		tr := NewTracker(store, budget, 100, nil)
		tr.now = fixedNow

		tr.Record(ctx, types.UsageEvent{UserID: "u", Feature: FeatureCorrelation, InputChars: 30, OutputChars: 12})

		require.Len(t, store.events, 1)
		assert.NotEqual(t, uuid.Nil, store.events[0].ID)
		assert.Equal(t, fixedNow(), store.events[0].CreatedAt)
		assert.Equal(t, int64(42), budget.added)
	})

	t.Run("failures are logged not returned", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		tr := NewTracker(&mockStore{err: errors.New("db gone")}, &mockBudget{addErr: errors.New("redis gone")}, 100, zap.New(core))

		assert.NotPanics(t, func() {
			tr.Record(ctx, types.UsageEvent{UserID: "u", Feature: FeatureReportDraft})
		})
		assert.Equal(t, 2, logs.Len())
	})
}

func TestMemoryBudget_RollsDaily(t *testing.T) {
	ctx := context.Background()
	now := fixedNow()
	b := NewMemoryBudget()
	b.now = func() time.Time { return now }

	_, err := b.Add(ctx, "u", 10)
	require.NoError(t, err)
	total, err := b.Add(ctx, "u", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)

	now = now.Add(2 * time.Minute)
	used, err := b.Used(ctx, "u")
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestNop(t *testing.T) {
	var m Meter = Nop{}
	assert.NoError(t, m.Allow(context.Background(), "u"))
	m.Record(context.Background(), types.UsageEvent{})
}
