// Package types provides type definitions for structured data used throughout the talent-compass system.
package types

import (
	"time"

	"github.com/google/uuid"
)

// UsageEvent records the size of one inference-service call
type UsageEvent struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Feature     string    `json:"feature"`
	Model       string    `json:"model,omitempty"`
	InputChars  int       `json:"input_chars"`
	OutputChars int       `json:"output_chars"`
	CreatedAt   time.Time `json:"created_at"`
}
