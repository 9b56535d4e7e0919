package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/talent-compass/internal/types"
)

// -----------------------------------------------------------------------------
// Confidence and computed profiles
// -----------------------------------------------------------------------------

// SaveConfidenceProfile upserts the user's confidence profile
func (db *DB) SaveConfidenceProfile(ctx context.Context, userID string, profile types.ConfidenceProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal confidence profile: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO confidence_profiles (user_id, profile, overall, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET profile = $2, overall = $3, updated_at = NOW()`,
		userID, data, profile.OverallConfidence,
	)
	if err != nil {
		return fmt.Errorf("failed to save confidence profile: %w", err)
	}
	return nil
}

// GetConfidenceProfile returns the user's confidence profile, or nil if none exists
func (db *DB) GetConfidenceProfile(ctx context.Context, userID string) (*types.ConfidenceProfile, error) {
	var data []byte
	err := db.pool.QueryRow(ctx,
		`SELECT profile FROM confidence_profiles WHERE user_id = $1`,
		userID,
	).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get confidence profile: %w", err)
	}

	var profile types.ConfidenceProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode confidence profile: %w", err)
	}
	return &profile, nil
}

// SaveComputedProfile upserts the user's working profile
func (db *DB) SaveComputedProfile(ctx context.Context, userID string, profile types.ComputedProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal computed profile: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO computed_profiles (user_id, profile, riasec_code, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET profile = $2, riasec_code = $3, updated_at = NOW()`,
		userID, data, profile.RIASECCode,
	)
	if err != nil {
		return fmt.Errorf("failed to save computed profile: %w", err)
	}
	return nil
}

// GetComputedProfile returns the user's working profile, or nil if none exists
func (db *DB) GetComputedProfile(ctx context.Context, userID string) (*types.ComputedProfile, error) {
	var data []byte
	err := db.pool.QueryRow(ctx,
		`SELECT profile FROM computed_profiles WHERE user_id = $1`,
		userID,
	).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get computed profile: %w", err)
	}

	var profile types.ComputedProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode computed profile: %w", err)
	}
	return &profile, nil
}

// -----------------------------------------------------------------------------
// Profile snapshots
// -----------------------------------------------------------------------------

// InsertSnapshot appends a snapshot. A duplicate version returns ErrVersionConflict.
func (db *DB) InsertSnapshot(ctx context.Context, userID string, snap types.ProfileSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO profile_snapshots (user_id, version, trigger, riasec_code, snapshot, taken_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, snap.Version, string(snap.Trigger), snap.RIASECCode, data, snap.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s version %d: %w", userID, snap.Version, ErrVersionConflict)
		}
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// SaveEvolution stores the evolved profile and its snapshot in one transaction
func (db *DB) SaveEvolution(ctx context.Context, userID string, profile types.ComputedProfile, snap types.ProfileSnapshot) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal computed profile: %w", err)
	}
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO profile_snapshots (user_id, version, trigger, riasec_code, snapshot, taken_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, snap.Version, string(snap.Trigger), snap.RIASECCode, snapJSON, snap.Timestamp,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("user %s version %d: %w", userID, snap.Version, ErrVersionConflict)
			}
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO computed_profiles (user_id, profile, riasec_code, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (user_id) DO UPDATE SET profile = $2, riasec_code = $3, updated_at = NOW()`,
			userID, profileJSON, profile.RIASECCode,
		)
		if err != nil {
			return fmt.Errorf("failed to save computed profile: %w", err)
		}
		return nil
	})
}

// ListSnapshots returns the user's snapshots in version order
func (db *DB) ListSnapshots(ctx context.Context, userID string) ([]types.ProfileSnapshot, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT snapshot FROM profile_snapshots WHERE user_id = $1 ORDER BY version`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []types.ProfileSnapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		var snap types.ProfileSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// CountSnapshots returns how many snapshots the user has
func (db *DB) CountSnapshots(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM profile_snapshots WHERE user_id = $1`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}
