package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestSchemaDefinesEveryTable(t *testing.T) {
	schema := Schema()
	tables := []string{
		"confidence_profiles",
		"computed_profiles",
		"profile_snapshots",
		"session_insights",
		"data_insights",
		"quiz_scores",
		"quiz_modules",
		"correlations",
		"agent_decisions",
		"report_runs",
		"report_trace_steps",
		"usage_events",
	}
	for _, table := range tables {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
	assert.Contains(t, schema, "UNIQUE (user_id, version)")
	assert.NotContains(t, strings.ToUpper(schema), "DROP ")
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"plain error mentioning duplicate", errors.New("duplicate key value"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestStatusConstants(t *testing.T) {
	assert.Equal(t, "running", RunStatusRunning)
	assert.Equal(t, "completed", RunStatusCompleted)
	assert.Equal(t, "failed", RunStatusFailed)
	assert.Equal(t, "in_progress", ModuleInProgress)
	assert.Equal(t, "completed", ModuleCompleted)
}
