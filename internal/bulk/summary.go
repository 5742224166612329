package bulk

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	dErrors "ecotrace/pkg/domainerrors"
)

// ItemError is the typed failure captured for one item.
type ItemError struct {
	Code    dErrors.Code `json:"code"`
	Message string       `json:"message"`
}

func itemErrorFrom(err error) *ItemError {
	if err == nil {
		return nil
	}
	return &ItemError{Code: dErrors.CodeOf(err), Message: err.Error()}
}

// ItemResult is the outcome for one input item. Results always appear in
// original input order regardless of processing order.
type ItemResult struct {
	// Success is true when the transition committed (or, under ValidateOnly,
	// when the item passed the static pass).
	Success bool `json:"success"`
	// Attempted is false for items the run never reached, either because an
	// earlier fatal failure stopped it or the run was cancelled.
	Attempted bool `json:"attempted"`
	// OutputRef is the id of the created or mutated asset.
	OutputRef string     `json:"output_ref,omitempty"`
	Error     *ItemError `json:"error,omitempty"`
	// Input echoes the item payload for caller-side correlation.
	Input Item `json:"input"`
}

// Summary is the single deterministic report of one bulk run.
type Summary struct {
	RunID      uuid.UUID    `json:"run_id"`
	Kind       Kind         `json:"kind"`
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []ItemResult `json:"per_item_results"`
	StartTime  time.Time    `json:"start_time"`
	EndTime    time.Time    `json:"end_time"`
	Duration   time.Duration `json:"-"`
}

// MarshalJSON reports the duration in whole milliseconds; a raw time.Duration
// would serialize as nanoseconds under a field named duration_ms.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		DurationMS int64 `json:"duration_ms"`
	}{alias(s), s.Duration.Milliseconds()})
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	type alias Summary
	aux := struct {
		*alias
		DurationMS int64 `json:"duration_ms"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Duration = time.Duration(aux.DurationMS) * time.Millisecond
	return nil
}

func (s *Summary) tally() {
	s.Successful = 0
	s.Failed = 0
	for _, r := range s.Results {
		switch {
		case r.Success:
			s.Successful++
		case r.Attempted:
			s.Failed++
		}
	}
}
