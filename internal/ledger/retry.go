package ledger

import (
	"context"
	"errors"
	"time"

	"ecotrace/pkg/sentinel"
)

// RetryPolicy bounds re-attempts against the ledger. Zero value means one
// attempt, no retries.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryPolicy gives the ledger two extra chances with a short pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Backoff: 250 * time.Millisecond}
}

// retryingRecorder decorates a ProofRecorder with bounded retry on
// unavailability. Other errors pass through immediately.
type retryingRecorder struct {
	inner  ProofRecorder
	policy RetryPolicy
}

// WithRetry wraps a recorder in the given retry policy.
func WithRetry(inner ProofRecorder, policy RetryPolicy) ProofRecorder {
	return &retryingRecorder{inner: inner, policy: policy}
}

func (r *retryingRecorder) Enabled() bool { return r.inner.Enabled() }

func (r *retryingRecorder) SubmitProof(ctx context.Context, proof Proof) (*Receipt, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.policy.Backoff * time.Duration(attempt)):
			}
		}
		receipt, err := r.inner.SubmitProof(ctx, proof)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
