package bulk

import (
	"strings"

	"github.com/google/uuid"

	"ecotrace/internal/evidence"
	dErrors "ecotrace/pkg/domainerrors"
)

// Item is one per-item payload. Which fields are required depends on the
// transition kind; the static validation pass enforces the shape before any
// state mutation begins.
type Item struct {
	// Register inputs.
	SerialNumber string `json:"serial_number,omitempty"`
	Model        string `json:"model,omitempty"`
	Owner        string `json:"owner,omitempty"`

	// Inputs for transitions addressing an existing asset.
	AssetID          string `json:"asset_id,omitempty"`
	SanitizationHash string `json:"sanitization_hash,omitempty"`
	NewOwner         string `json:"new_owner,omitempty"`
}

// validate performs the static shape check for one item of the given kind.
// seenSerials tracks in-batch duplicates for register runs; the returned bool
// reports whether the failure is a duplicate (subject to SkipDuplicates
// policy) rather than a plain validation failure.
func (it Item) validate(kind Kind, seenSerials map[string]bool) (err error, duplicate bool) {
	switch kind {
	case KindRegister:
		serial := strings.ToLower(strings.TrimSpace(it.SerialNumber))
		if serial == "" {
			return dErrors.New(dErrors.CodeValidation, "serial_number is required"), false
		}
		if strings.TrimSpace(it.Model) == "" {
			return dErrors.New(dErrors.CodeValidation, "model is required"), false
		}
		if seenSerials[serial] {
			return dErrors.Newf(dErrors.CodeDuplicateSerial,
				"serial number %q appears more than once in this batch", it.SerialNumber), true
		}
		seenSerials[serial] = true
		return nil, false

	case KindSanitize:
		if err := it.requireAssetID(); err != nil {
			return err, false
		}
		if !evidence.ValidHash(it.SanitizationHash) {
			return dErrors.New(dErrors.CodeValidation,
				"sanitization_hash is not a valid content address"), false
		}
		return nil, false

	case KindRecycle:
		return it.requireAssetID(), false

	case KindTransfer:
		if err := it.requireAssetID(); err != nil {
			return err, false
		}
		if strings.TrimSpace(it.NewOwner) == "" {
			return dErrors.New(dErrors.CodeValidation, "new_owner is required"), false
		}
		return nil, false
	}
	return dErrors.Newf(dErrors.CodeBadRequest, "unknown bulk operation kind %q", kind), false
}

func (it Item) requireAssetID() error {
	if strings.TrimSpace(it.AssetID) == "" {
		return dErrors.New(dErrors.CodeValidation, "asset_id is required")
	}
	if _, err := uuid.Parse(it.AssetID); err != nil {
		return dErrors.Newf(dErrors.CodeValidation, "asset_id %q is not a valid id", it.AssetID)
	}
	return nil
}
