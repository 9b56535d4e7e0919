package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/talent-compass/internal/types"
)

// InsertDecision appends an agent decision to the audit log
func (db *DB) InsertDecision(ctx context.Context, d types.AgentDecision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}
	outcome := d.Outcome
	if outcome == "" {
		outcome = types.OutcomePending
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO agent_decisions (id, user_id, action_type, decision, outcome, decided_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.UserID, string(d.Action.Type), data, string(outcome), d.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// GetDecision returns a decision by id, or nil
func (db *DB) GetDecision(ctx context.Context, id uuid.UUID) (*types.AgentDecision, error) {
	var data []byte
	var outcome string
	err := db.pool.QueryRow(ctx,
		`SELECT decision, outcome FROM agent_decisions WHERE id = $1`,
		id,
	).Scan(&data, &outcome)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return decodeDecision(data, outcome)
}

// UpdateDecisionOutcome sets the outcome of a pending decision. Returns ErrDecisionResolved
// when the decision exists but is no longer pending, and (nil, nil) when it does not exist.
func (db *DB) UpdateDecisionOutcome(ctx context.Context, id uuid.UUID, outcome types.DecisionOutcome) (*types.AgentDecision, error) {
	var data []byte
	var stored string
	err := db.pool.QueryRow(ctx,
		`UPDATE agent_decisions SET outcome = $2, outcome_at = NOW()
		 WHERE id = $1 AND outcome = 'pending'
		 RETURNING decision, outcome`,
		id, string(outcome),
	).Scan(&data, &stored)
	if err == nil {
		return decodeDecision(data, stored)
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to update decision outcome: %w", err)
	}

	existing, getErr := db.GetDecision(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if existing == nil {
		return nil, nil
	}
	return nil, fmt.Errorf("decision %s: %w", id, ErrDecisionResolved)
}

// ListDecisions returns the user's most recent decisions, newest first
func (db *DB) ListDecisions(ctx context.Context, userID string, limit int) ([]types.AgentDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT decision, outcome FROM agent_decisions
		 WHERE user_id = $1 ORDER BY decided_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var out []types.AgentDecision
	for rows.Next() {
		var data []byte
		var outcome string
		if err := rows.Scan(&data, &outcome); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d, err := decodeDecision(data, outcome)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// decodeDecision unmarshals the stored document; the outcome column is authoritative
func decodeDecision(data []byte, outcome string) (*types.AgentDecision, error) {
	var d types.AgentDecision
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode decision: %w", err)
	}
	d.Outcome = types.DecisionOutcome(outcome)
	return &d, nil
}
