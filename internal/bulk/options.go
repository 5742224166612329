package bulk

// Hard limits on sub-batch sizing. The cap bounds the burst a single sub-batch
// can put on the ledger and evidence collaborators.
const (
	DefaultBatchSize = 50
	MaxBatchSize     = 500
)

// Options tune one bulk run.
type Options struct {
	// BatchSize is the sub-batch length. Coerced into [1, MaxBatchSize];
	// zero means DefaultBatchSize.
	BatchSize int `json:"batch_size"`
	// ContinueOnError keeps the run going past per-item failures. When false,
	// the first failure stops the entire run, not just its sub-batch.
	ContinueOnError bool `json:"continue_on_error"`
	// SkipDuplicates marks duplicate-serial register items as failed and moves
	// on instead of treating them as fatal validation failures.
	SkipDuplicates bool `json:"skip_duplicates"`
	// ValidateOnly stops after the static validation pass; no state is mutated.
	ValidateOnly bool `json:"validate_only"`
}

// DefaultOptions are the values used for fields absent from a request.
func DefaultOptions() Options {
	return Options{
		BatchSize:       DefaultBatchSize,
		ContinueOnError: true,
		SkipDuplicates:  true,
		ValidateOnly:    false,
	}
}

// normalize coerces sizing into bounds.
func (o Options) normalize() Options {
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchSize < 1 {
		o.BatchSize = 1
	}
	if o.BatchSize > MaxBatchSize {
		o.BatchSize = MaxBatchSize
	}
	return o
}
