// Package audit captures immutable records of asset lifecycle activity.
// Emission is best-effort: a failed audit write is logged and swallowed, never
// rolled into the business transition's outcome.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names the business activity an audit entry records.
type Action string

const (
	ActionAssetRegistered  Action = "asset_registered"
	ActionAssetSanitized   Action = "asset_sanitized"
	ActionAssetRecycled    Action = "asset_recycled"
	ActionAssetTransferred Action = "asset_transferred"
	ActionBulkRunCompleted Action = "bulk_run_completed"
)

// Result marks the recorded outcome of the action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Actor      string    `json:"actor"`
	Action     Action    `json:"action"`
	ResourceID string    `json:"resource_id"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	Result     Result    `json:"result"`
	Detail     string    `json:"detail,omitempty"`
}
