package ledger

import (
	"context"
	"fmt"
	"sync"

	"ecotrace/pkg/sentinel"
)

// InMemoryRecorder is the test double for the ledger. It can be told to fail
// for a number of calls to exercise retry and best-effort paths.
type InMemoryRecorder struct {
	mu       sync.Mutex
	proofs   []Proof
	failNext int
	seq      int
}

func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

func (r *InMemoryRecorder) Enabled() bool { return true }

// FailNext makes the next n submissions return ErrUnavailable.
func (r *InMemoryRecorder) FailNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = n
}

func (r *InMemoryRecorder) SubmitProof(_ context.Context, proof Proof) (*Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return nil, fmt.Errorf("ledger injected failure: %w", sentinel.ErrUnavailable)
	}
	r.seq++
	r.proofs = append(r.proofs, proof)
	return &Receipt{
		TxRef:    fmt.Sprintf("tx-%06d", r.seq),
		AssetRef: fmt.Sprintf("asset-%s", proof.AssetID),
	}, nil
}

// Proofs returns the recorded submissions, for test assertions.
func (r *InMemoryRecorder) Proofs() []Proof {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Proof{}, r.proofs...)
}
