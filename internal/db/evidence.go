package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/talent-compass/internal/types"
)

// Quiz module statuses
const (
	ModuleInProgress = "in_progress"
	ModuleCompleted  = "completed"
)

// -----------------------------------------------------------------------------
// Session insights
// -----------------------------------------------------------------------------

// InsertSessionInsights appends observations from one live session in a single batch
func (db *DB) InsertSessionInsights(ctx context.Context, userID, sessionID string, insights []types.SessionInsight) error {
	if len(insights) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, in := range insights {
		var dim *string
		if in.Dimension != "" {
			d := string(in.Dimension)
			dim = &d
		}
		batch.Queue(
			`INSERT INTO session_insights (user_id, session_id, category, dimension, confidence, observation, evidence, observed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			userID, sessionID, string(in.Category), dim, in.Confidence, in.Observation, in.Evidence, in.Timestamp,
		)
	}

	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert session insights: %w", err)
	}
	return nil
}

// ListSessionInsights returns every observation recorded for the user, oldest first
func (db *DB) ListSessionInsights(ctx context.Context, userID string) ([]types.SessionInsight, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT category, COALESCE(dimension, ''), confidence, observation, COALESCE(evidence, ''), observed_at
		 FROM session_insights WHERE user_id = $1 ORDER BY observed_at, created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list session insights: %w", err)
	}
	defer rows.Close()

	var out []types.SessionInsight
	for rows.Next() {
		var in types.SessionInsight
		var category, dim string
		if err := rows.Scan(&category, &dim, &in.Confidence, &in.Observation, &in.Evidence, &in.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan session insight: %w", err)
		}
		in.Category = types.BehaviorCategory(category)
		in.Dimension = types.Dimension(dim)
		out = append(out, in)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Data source insights
// -----------------------------------------------------------------------------

// SaveDataInsight upserts the distilled insight for one connected source
func (db *DB) SaveDataInsight(ctx context.Context, userID string, insight types.DataInsight) error {
	data, err := json.Marshal(insight)
	if err != nil {
		return fmt.Errorf("failed to marshal data insight: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO data_insights (user_id, source, insight, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, source) DO UPDATE SET insight = $3, updated_at = NOW()`,
		userID, insight.Source, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save data insight %s: %w", insight.Source, err)
	}
	return nil
}

// ListDataInsights returns the insights of every connected source, by source name
func (db *DB) ListDataInsights(ctx context.Context, userID string) ([]types.DataInsight, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT insight FROM data_insights WHERE user_id = $1 ORDER BY source`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list data insights: %w", err)
	}
	defer rows.Close()

	var out []types.DataInsight
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan data insight: %w", err)
		}
		var insight types.DataInsight
		if err := json.Unmarshal(data, &insight); err != nil {
			return nil, fmt.Errorf("failed to decode data insight: %w", err)
		}
		out = append(out, insight)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Quizzes
// -----------------------------------------------------------------------------

// InsertQuizScores appends scored answers
func (db *DB) InsertQuizScores(ctx context.Context, userID string, scores []types.QuizScore) error {
	if len(scores) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range scores {
		batch.Queue(
			`INSERT INTO quiz_scores (user_id, module_id, dimension, score, rationale)
			 VALUES ($1, $2, $3, $4, $5)`,
			userID, s.ModuleID, string(s.Dimension), s.Score, s.Rationale,
		)
	}
	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert quiz scores: %w", err)
	}
	return nil
}

// ListQuizScores returns every scored answer for the user, oldest first
func (db *DB) ListQuizScores(ctx context.Context, userID string) ([]types.QuizScore, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT module_id, dimension, score, COALESCE(rationale, ''), created_at
		 FROM quiz_scores WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz scores: %w", err)
	}
	defer rows.Close()

	var out []types.QuizScore
	for rows.Next() {
		var s types.QuizScore
		var dim string
		if err := rows.Scan(&s.ModuleID, &dim, &s.Score, &s.Rationale, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz score: %w", err)
		}
		s.Dimension = types.Dimension(dim)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetModuleStatus records a quiz module as in progress or completed
func (db *DB) SetModuleStatus(ctx context.Context, userID, moduleID, status string) error {
	if status != ModuleInProgress && status != ModuleCompleted {
		return fmt.Errorf("invalid module status %q", status)
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO quiz_modules (user_id, module_id, status, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, module_id) DO UPDATE SET status = $3, updated_at = NOW()`,
		userID, moduleID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to set module status: %w", err)
	}
	return nil
}

// ListModules returns the user's completed and in-progress module ids, each sorted
func (db *DB) ListModules(ctx context.Context, userID string) (completed, inProgress []string, err error) {
	rows, err := db.pool.Query(ctx,
		`SELECT module_id, status FROM quiz_modules WHERE user_id = $1 ORDER BY module_id`,
		userID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, nil, fmt.Errorf("failed to scan module: %w", err)
		}
		if status == ModuleCompleted {
			completed = append(completed, id)
		} else {
			inProgress = append(inProgress, id)
		}
	}
	return completed, inProgress, rows.Err()
}

// -----------------------------------------------------------------------------
// Correlations
// -----------------------------------------------------------------------------

// SaveCorrelation stores a correlation result
func (db *DB) SaveCorrelation(ctx context.Context, userID string, result types.CorrelationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal correlation: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO correlations (user_id, result) VALUES ($1, $2)`,
		userID, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save correlation: %w", err)
	}
	return nil
}

// LatestCorrelation returns the most recent correlation result, or nil
func (db *DB) LatestCorrelation(ctx context.Context, userID string) (*types.CorrelationResult, error) {
	var data []byte
	err := db.pool.QueryRow(ctx,
		`SELECT result FROM correlations WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get correlation: %w", err)
	}
	var result types.CorrelationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode correlation: %w", err)
	}
	return &result, nil
}
