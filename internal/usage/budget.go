package usage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisBudgetAddScript = `
local total = redis.call("INCRBY", KEYS[1], ARGV[1])
if redis.call("TTL", KEYS[1]) < 0 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return total
`

const redisBudgetGetScript = `
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
return tonumber(v)
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisBudget counts characters per user per UTC day in Redis
type RedisBudget struct {
	client redisEvaler
	prefix string
	window time.Duration
	now    func() time.Time
}

// NewRedisBudget creates a daily budget counter. Returns nil for a nil client.
func NewRedisBudget(client *redis.Client) *RedisBudget {
	if client == nil {
		return nil
	}
	return &RedisBudget{
		client: client,
		prefix: "usage:budget:",
		window: 24 * time.Hour,
		now:    time.Now,
	}
}

func (b *RedisBudget) key(userID string) string {
	user := strings.ToLower(strings.TrimSpace(userID))
	if user == "" {
		user = "anonymous"
	}
	return b.prefix + user + ":" + b.now().UTC().Format("20060102")
}

// Used returns the characters spent in the current window
func (b *RedisBudget) Used(ctx context.Context, userID string) (int64, error) {
	return b.client.Eval(ctx, redisBudgetGetScript, []string{b.key(userID)}).Int64()
}

// Add increments the counter and returns the new total. The key expires with its window.
func (b *RedisBudget) Add(ctx context.Context, userID string, chars int64) (int64, error) {
	seconds := int(b.window.Seconds())
	if seconds <= 0 {
		seconds = 86400
	}
	return b.client.Eval(ctx, redisBudgetAddScript, []string{b.key(userID)}, chars, seconds).Int64()
}

// MemoryBudget is an in-process Budget for single-node runs and the CLI
type MemoryBudget struct {
	mu     sync.Mutex
	counts map[string]int64
	day    string
	now    func() time.Time
}

// NewMemoryBudget creates an empty in-process counter that resets at UTC midnight
func NewMemoryBudget() *MemoryBudget {
	return &MemoryBudget{counts: make(map[string]int64), now: time.Now}
}

func (b *MemoryBudget) roll() {
	day := b.now().UTC().Format("20060102")
	if day != b.day {
		b.day = day
		b.counts = make(map[string]int64)
	}
}

// Used returns the characters spent today
func (b *MemoryBudget) Used(_ context.Context, userID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.counts[userID], nil
}

// Add increments today's counter and returns the new total
func (b *MemoryBudget) Add(_ context.Context, userID string, chars int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	b.counts[userID] += chars
	return b.counts[userID], nil
}
