package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/talent-compass/internal/types"
)

// Report run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ReportRun is one report generation attempt with its outcome
type ReportRun struct {
	ID           uuid.UUID               `json:"id"`
	UserID       string                  `json:"user_id"`
	Status       string                  `json:"status"`
	Report       *types.Report           `json:"report,omitempty"`
	Critique     *types.Critique         `json:"critique,omitempty"`
	Confidence   *float64                `json:"confidence,omitempty"`
	ErrorMessage *string                 `json:"error_message,omitempty"`
	Trace        []types.ReportTraceStep `json:"trace,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`

	// ProfileConfidence is the user's overall evidence confidence when the run started
	ProfileConfidence float64 `json:"profile_confidence"`
}

// -----------------------------------------------------------------------------
// Report Runs Methods
// -----------------------------------------------------------------------------

// CreateReportRun records the start of a generation attempt
func (db *DB) CreateReportRun(ctx context.Context, runID uuid.UUID, userID string, profileConfidence float64) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO report_runs (id, user_id, status, profile_confidence) VALUES ($1, $2, $3, $4)`,
		runID, userID, RunStatusRunning, profileConfidence,
	)
	if err != nil {
		return fmt.Errorf("failed to create report run: %w", err)
	}
	return nil
}

// CompleteReportRun stores the finished report and its trace in one transaction
func (db *DB) CompleteReportRun(ctx context.Context, runID uuid.UUID, result *types.ReportResult) error {
	reportJSON, err := json.Marshal(result.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	critiqueJSON, err := json.Marshal(result.Critique)
	if err != nil {
		return fmt.Errorf("failed to marshal critique: %w", err)
	}

	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE report_runs
			 SET status = $2, report = $3, critique = $4, confidence = $5, completed_at = NOW()
			 WHERE id = $1`,
			runID, RunStatusCompleted, reportJSON, critiqueJSON, result.Report.Confidence,
		)
		if err != nil {
			return fmt.Errorf("failed to complete report run: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("report run %s not found", runID)
		}

		batch := &pgx.Batch{}
		for _, step := range result.Trace {
			var metaJSON []byte
			if step.Metadata != nil {
				if metaJSON, err = json.Marshal(step.Metadata); err != nil {
					return fmt.Errorf("failed to marshal step metadata: %w", err)
				}
			}
			batch.Queue(
				`INSERT INTO report_trace_steps
				   (run_id, step, name, description, input_summary, output_summary, confidence_change, duration_ms, metadata)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				runID, step.Step, step.Name, step.Description, step.InputSummary, step.OutputSummary,
				step.ConfidenceChange, step.DurationMs, metaJSON,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert trace steps: %w", err)
		}
		return nil
	})
}

// FailReportRun marks an attempt as failed with the error that stopped it
func (db *DB) FailReportRun(ctx context.Context, runID uuid.UUID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE report_runs SET status = $2, error_message = $3, completed_at = NOW() WHERE id = $1`,
		runID, RunStatusFailed, msg,
	)
	if err != nil {
		return fmt.Errorf("failed to mark report run failed: %w", err)
	}
	return nil
}

// GetReportRun returns a run with its trace, or nil
func (db *DB) GetReportRun(ctx context.Context, runID uuid.UUID) (*ReportRun, error) {
	run, err := db.scanReportRun(db.pool.QueryRow(ctx,
		`SELECT id, user_id, status, report, critique, confidence, profile_confidence, error_message, created_at, completed_at
		 FROM report_runs WHERE id = $1`,
		runID,
	))
	if err != nil || run == nil {
		return run, err
	}
	run.Trace, err = db.ListTraceSteps(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// LatestReport returns the user's most recent completed run with its trace, or nil
func (db *DB) LatestReport(ctx context.Context, userID string) (*ReportRun, error) {
	run, err := db.scanReportRun(db.pool.QueryRow(ctx,
		`SELECT id, user_id, status, report, critique, confidence, profile_confidence, error_message, created_at, completed_at
		 FROM report_runs WHERE user_id = $1 AND status = $2
		 ORDER BY created_at DESC LIMIT 1`,
		userID, RunStatusCompleted,
	))
	if err != nil || run == nil {
		return run, err
	}
	run.Trace, err = db.ListTraceSteps(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListTraceSteps returns the steps of a run in order
func (db *DB) ListTraceSteps(ctx context.Context, runID uuid.UUID) ([]types.ReportTraceStep, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT step, name, description, input_summary, output_summary, confidence_change, duration_ms, metadata
		 FROM report_trace_steps WHERE run_id = $1 ORDER BY step`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trace steps: %w", err)
	}
	defer rows.Close()

	var steps []types.ReportTraceStep
	for rows.Next() {
		var step types.ReportTraceStep
		var metaJSON []byte
		if err := rows.Scan(&step.Step, &step.Name, &step.Description, &step.InputSummary,
			&step.OutputSummary, &step.ConfidenceChange, &step.DurationMs, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan trace step: %w", err)
		}
		if metaJSON != nil {
			if err := json.Unmarshal(metaJSON, &step.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode step metadata: %w", err)
			}
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (db *DB) scanReportRun(row pgx.Row) (*ReportRun, error) {
	var run ReportRun
	var reportJSON, critiqueJSON []byte
	err := row.Scan(&run.ID, &run.UserID, &run.Status, &reportJSON, &critiqueJSON,
		&run.Confidence, &run.ProfileConfidence, &run.ErrorMessage, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report run: %w", err)
	}

	if reportJSON != nil {
		run.Report = &types.Report{}
		if err := json.Unmarshal(reportJSON, run.Report); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
	}
	if critiqueJSON != nil {
		run.Critique = &types.Critique{}
		if err := json.Unmarshal(critiqueJSON, run.Critique); err != nil {
			return nil, fmt.Errorf("failed to decode critique: %w", err)
		}
	}
	return &run, nil
}

// -----------------------------------------------------------------------------
// Usage events
// -----------------------------------------------------------------------------

// InsertUsageEvent stores the size of one inference call
func (db *DB) InsertUsageEvent(ctx context.Context, ev types.UsageEvent) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO usage_events (id, user_id, feature, model, input_chars, output_chars, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.UserID, ev.Feature, ev.Model, ev.InputChars, ev.OutputChars, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}
	return nil
}

// UsageTotals returns characters spent per feature since the given time
func (db *DB) UsageTotals(ctx context.Context, userID string, since time.Time) (map[string]int64, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT feature, SUM(input_chars + output_chars)
		 FROM usage_events WHERE user_id = $1 AND created_at >= $2
		 GROUP BY feature`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sum usage: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var feature string
		var total int64
		if err := rows.Scan(&feature, &total); err != nil {
			return nil, fmt.Errorf("failed to scan usage total: %w", err)
		}
		totals[feature] = total
	}
	return totals, rows.Err()
}
