// Package ledger holds the best-effort adapter for the external immutable
// ledger. The local store stays the source of truth; a ledger failure never
// invalidates a committed transition.
package ledger

import (
	"context"
	"time"
)

// Proof is the transition evidence submitted to the ledger.
type Proof struct {
	AssetID          string    `json:"asset_id"`
	SerialNumber     string    `json:"serial_number"`
	TransitionKind   string    `json:"transition_kind"`
	SanitizationHash string    `json:"sanitization_hash,omitempty"`
	NewOwner         string    `json:"new_owner,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Receipt is the ledger's reference for a submitted proof.
type Receipt struct {
	TxRef    string `json:"tx_ref"`
	AssetRef string `json:"asset_ref,omitempty"`
}

// ProofRecorder submits a transition proof to the ledger. Implementations map
// transport failures to sentinel.ErrUnavailable (wrapped) so callers can
// distinguish "ledger down" from programming errors.
type ProofRecorder interface {
	SubmitProof(ctx context.Context, proof Proof) (*Receipt, error)
	Enabled() bool
}

// Disabled is the recorder used when no ledger is configured. Absence is a
// normal, non-error state.
type Disabled struct{}

func (Disabled) SubmitProof(context.Context, Proof) (*Receipt, error) { return nil, nil }
func (Disabled) Enabled() bool                                        { return false }
