package bulk

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryDurationSerializesAsMilliseconds(t *testing.T) {
	summary := Summary{
		RunID:      uuid.New(),
		Kind:       KindRegister,
		Total:      3,
		Successful: 2,
		Failed:     1,
		Duration:   1500 * time.Millisecond,
	}

	body, err := json.Marshal(summary)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.EqualValues(t, 1500, raw["duration_ms"])

	var decoded Summary
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, summary.RunID, decoded.RunID)
	assert.Equal(t, 1500*time.Millisecond, decoded.Duration)
}
