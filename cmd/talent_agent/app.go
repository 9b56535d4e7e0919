package main

import (
	"context"
	"fmt"

	"github.com/jonathan/talent-compass/internal/assessment"
	"github.com/jonathan/talent-compass/internal/config"
	"github.com/jonathan/talent-compass/internal/correlation"
	"github.com/jonathan/talent-compass/internal/db"
	"github.com/jonathan/talent-compass/internal/llm"
	"github.com/jonathan/talent-compass/internal/observability"
	"github.com/jonathan/talent-compass/internal/report"
	"github.com/jonathan/talent-compass/internal/usage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the process-wide dependencies shared by the commands
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *db.DB
	redis  *redis.Client
	llm    llm.Client
	svc    *assessment.Service
}

// appOptions selects which dependencies a command needs
type appOptions struct {
	inference bool // correlation and report generation
}

// newApp loads configuration and connects the storage and inference dependencies.
// The caller must Close the returned app.
func newApp(ctx context.Context, opts appOptions) (a *app, err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or database_url config is required")
	}
	if opts.inference && cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable or api_key config is required")
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return nil, err
	}

	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.db, err = db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var correlator *correlation.Correlator
	var reporter *report.Agent
	if opts.inference {
		meter, err := a.meter(ctx)
		if err != nil {
			return nil, err
		}

		a.llm, err = llm.NewClient(ctx, llm.DefaultConfig().WithTimeout(cfg.ReportTimeout()), cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create inference client: %w", err)
		}
		correlator = correlation.New(a.llm,
			correlation.WithMeter(meter),
			correlation.WithLogger(logger),
			correlation.WithTimeout(cfg.CorrelationTimeout()))
		reporter = report.NewAgent(a.llm,
			report.WithMeter(meter),
			report.WithLogger(logger),
			report.WithTimeout(cfg.ReportTimeout()))
	}

	a.svc = assessment.New(a.db, correlator, reporter, assessment.WithLogger(logger))
	return a, nil
}

// meter builds the usage tracker. Without Redis the budget is counted in process memory.
func (a *app) meter(ctx context.Context) (usage.Meter, error) {
	var budget usage.Budget = usage.NewMemoryBudget()
	if a.cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.RedisAddr, err)
		}
		budget = usage.NewRedisBudget(a.redis)
	} else {
		a.logger.Warn("REDIS_ADDR not set; usage budget is per process")
	}
	return usage.NewTracker(a.db, budget, a.cfg.DailyCharBudget, a.logger), nil
}

// Close releases every dependency that was opened
func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.logger.Warn("failed to close inference client", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	_ = a.logger.Sync()
}
