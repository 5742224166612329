package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "ecotrace/pkg/domainerrors"
)

// CarbonCreditAward is the fixed number of credits granted at recycling when
// the asset carries none yet. A manually assigned nonzero value is preserved.
const CarbonCreditAward = 10

// Asset is the aggregate root for one tracked physical IT asset.
//
// Invariants:
//   - SerialNumber is non-empty, globally unique, immutable after creation
//   - Status only moves along the legal transition DAG (see Status)
//   - SanitizationHash is set exactly once, at the sanitize transition
//   - RegistrationTime, SanitizationTime, RecyclingTime are each set exactly
//     once by their transition and never overwritten
//   - CarbonCredits is never negative
//   - Version is the optimistic concurrency token: every store write must
//     supply the version it read, and the store bumps it on success
//
// Ledger references are secondary, best-effort fields. Their absence never
// invalidates the record.
type Asset struct {
	ID               uuid.UUID `json:"id"`
	SerialNumber     string    `json:"serial_number"`
	Model            string    `json:"model"`
	Status           Status    `json:"status"`
	Owner            string    `json:"owner"`
	SanitizationHash string    `json:"sanitization_hash,omitempty"`
	CarbonCredits    int64     `json:"carbon_credits"`

	RegistrationTime time.Time `json:"registration_time"`
	SanitizationTime time.Time `json:"sanitization_time,omitzero"`
	RecyclingTime    time.Time `json:"recycling_time,omitzero"`

	LedgerTxRef    string `json:"ledger_tx_ref,omitempty"`
	LedgerAssetRef string `json:"ledger_asset_ref,omitempty"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAsset constructs a registered asset, validating creation invariants.
func NewAsset(id uuid.UUID, serialNumber, model, owner string, now time.Time) (*Asset, error) {
	serialNumber = strings.TrimSpace(serialNumber)
	model = strings.TrimSpace(model)
	owner = strings.TrimSpace(owner)
	if serialNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "serial number cannot be empty")
	}
	if len(serialNumber) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "serial number must be 128 characters or less")
	}
	if model == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "model cannot be empty")
	}
	return &Asset{
		ID:               id,
		SerialNumber:     serialNumber,
		Model:            model,
		Status:           StatusRegistered,
		Owner:            owner,
		RegistrationTime: now,
		UpdatedAt:        now,
		Version:          1,
	}, nil
}

// CanSanitize checks whether the sanitize transition is legal from the
// current status. Use with ApplySanitize for the check/apply pattern.
func (a *Asset) CanSanitize() error {
	if !a.Status.CanTransitionTo(StatusSanitized) {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"cannot sanitize asset in status %s", a.Status)
	}
	if a.SanitizationHash != "" {
		return dErrors.New(dErrors.CodeInvalidState, "sanitization hash already set")
	}
	return nil
}

// ApplySanitize records the sanitization proof. Call CanSanitize first.
func (a *Asset) ApplySanitize(hash string, now time.Time) {
	a.Status = StatusSanitized
	a.SanitizationHash = hash
	a.SanitizationTime = now
	a.UpdatedAt = now
}

// Sanitize validates and applies the sanitize transition in one call.
func (a *Asset) Sanitize(hash string, now time.Time) error {
	if err := a.CanSanitize(); err != nil {
		return err
	}
	a.ApplySanitize(hash, now)
	return nil
}

// CanRecycle checks whether the recycle transition is legal from the current status.
func (a *Asset) CanRecycle() error {
	if !a.Status.CanTransitionTo(StatusRecycled) {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"cannot recycle asset in status %s", a.Status)
	}
	return nil
}

// ApplyRecycle records recycling. The carbon award only lands when the asset
// carries no credits yet, so manual overrides survive.
func (a *Asset) ApplyRecycle(now time.Time) {
	a.Status = StatusRecycled
	a.RecyclingTime = now
	if a.CarbonCredits == 0 {
		a.CarbonCredits = CarbonCreditAward
	}
	a.UpdatedAt = now
}

// Recycle validates and applies the recycle transition in one call.
func (a *Asset) Recycle(now time.Time) error {
	if err := a.CanRecycle(); err != nil {
		return err
	}
	a.ApplyRecycle(now)
	return nil
}

// CanTransfer checks whether the transfer transition is legal from the
// current status. Transfer is legal from SANITIZED or RECYCLED.
func (a *Asset) CanTransfer(newOwner string) error {
	if !a.Status.CanTransitionTo(StatusSold) {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"cannot transfer asset in status %s", a.Status)
	}
	if strings.TrimSpace(newOwner) == "" {
		return dErrors.New(dErrors.CodeValidation, "new owner cannot be empty")
	}
	return nil
}

// ApplyTransfer hands the asset to its new owner. Call CanTransfer first.
func (a *Asset) ApplyTransfer(newOwner string, now time.Time) {
	a.Status = StatusSold
	a.Owner = strings.TrimSpace(newOwner)
	a.UpdatedAt = now
}

// Transfer validates and applies the transfer transition in one call.
func (a *Asset) Transfer(newOwner string, now time.Time) error {
	if err := a.CanTransfer(newOwner); err != nil {
		return err
	}
	a.ApplyTransfer(newOwner, now)
	return nil
}

// Clone returns a deep copy so stores can hand out records without aliasing
// their internal state.
func (a *Asset) Clone() *Asset {
	cp := *a
	return &cp
}
