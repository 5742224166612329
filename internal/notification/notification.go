// Package notification delivers bulk run summaries to operators. Channels are
// independent: a failing email send never prevents a chat webhook from being
// attempted, and no delivery failure affects the bulk result.
package notification

import (
	"context"
	"encoding/json"
	"time"
)

// Summary is the aggregate payload emitted once per completed bulk run.
type Summary struct {
	OperationKind string        `json:"operation_kind"`
	Total         int           `json:"total"`
	Successful    int           `json:"successful"`
	Failed        int           `json:"failed"`
	Duration      time.Duration `json:"-"`
}

// MarshalJSON reports the duration in whole milliseconds so serialized
// payloads match the duration_ms field name.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		DurationMS int64 `json:"duration_ms"`
	}{alias(s), s.Duration.Milliseconds()})
}

// Channel delivers one summary over one medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, summary Summary) error
}
