// Package service implements the asset lifecycle state machine. It is the
// only code path allowed to mutate an asset's status: each operation reads the
// current record, validates the transition against the freshly read status,
// and writes back conditioned on the version being unchanged since the read.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ecotrace/internal/asset/models"
	"ecotrace/internal/asset/store"
	"ecotrace/internal/audit"
	"ecotrace/internal/evidence"
	"ecotrace/internal/ledger"
	"ecotrace/internal/platform/metrics"
	"ecotrace/internal/platform/middleware"
	dErrors "ecotrace/pkg/domainerrors"
	"ecotrace/pkg/sentinel"
)

// AuditPublisher records lifecycle activity, best-effort.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates single-asset lifecycle transitions.
type Service struct {
	store       store.Store
	serialCache *store.SerialCache
	recorder    ledger.ProofRecorder
	auditor     AuditPublisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(auditor AuditPublisher) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLedger(recorder ledger.ProofRecorder) Option {
	return func(s *Service) { s.recorder = recorder }
}

func WithSerialCache(cache *store.SerialCache) Option {
	return func(s *Service) { s.serialCache = cache }
}

// WithClock overrides the timestamp source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service. The asset store is the only hard dependency; the
// ledger defaults to disabled and audit to a no-op.
func New(assets store.Store, opts ...Option) *Service {
	s := &Service{
		store:    assets,
		recorder: ledger.Disabled{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new asset in REGISTERED status. Serial numbers are
// globally unique; a duplicate yields a duplicate-serial error.
func (s *Service) Register(ctx context.Context, serialNumber, model, owner string) (*models.Asset, error) {
	asset, err := models.NewAsset(uuid.New(), serialNumber, model, owner, s.now())
	if err != nil {
		// Convert invariant violations to validation errors for callers.
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		s.observe("register", err)
		return nil, err
	}

	if s.serialCache.Contains(ctx, asset.SerialNumber) {
		err := dErrors.Newf(dErrors.CodeDuplicateSerial,
			"serial number %q already registered", asset.SerialNumber)
		s.observe("register", err)
		return nil, err
	}

	if err := s.store.Create(ctx, asset); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			err = dErrors.Newf(dErrors.CodeDuplicateSerial,
				"serial number %q already registered", asset.SerialNumber)
		} else {
			err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to create asset")
		}
		s.observe("register", err)
		return nil, err
	}
	s.serialCache.Add(ctx, asset.SerialNumber)

	s.recordProof(ctx, asset, "register")
	s.emitAudit(ctx, asset, audit.ActionAssetRegistered, "", models.StatusRegistered)
	s.observe("register", nil)
	return asset, nil
}

// Sanitize moves a REGISTERED asset to SANITIZED, attaching the content hash
// of its sanitization proof. The hash must be a well-formed content address.
func (s *Service) Sanitize(ctx context.Context, assetID uuid.UUID, sanitizationHash string) (*models.Asset, error) {
	if !evidence.ValidHash(sanitizationHash) {
		err := dErrors.New(dErrors.CodeValidation, "sanitization hash is not a valid content address")
		s.observe("sanitize", err)
		return nil, err
	}

	asset, err := s.applyTransition(ctx, assetID, "sanitize", func(a *models.Asset) error {
		return a.Sanitize(sanitizationHash, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.recordProof(ctx, asset, "sanitize")
	s.emitAudit(ctx, asset, audit.ActionAssetSanitized, models.StatusRegistered.String(), models.StatusSanitized)
	return asset, nil
}

// Recycle moves a SANITIZED asset to RECYCLED and awards carbon credits if
// none were assigned manually.
func (s *Service) Recycle(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	asset, err := s.applyTransition(ctx, assetID, "recycle", func(a *models.Asset) error {
		return a.Recycle(s.now())
	})
	if err != nil {
		return nil, err
	}

	s.recordProof(ctx, asset, "recycle")
	s.emitAudit(ctx, asset, audit.ActionAssetRecycled, models.StatusSanitized.String(), models.StatusRecycled)
	return asset, nil
}

// Transfer hands a SANITIZED or RECYCLED asset to a new owner, moving it to SOLD.
func (s *Service) Transfer(ctx context.Context, assetID uuid.UUID, newOwner string) (*models.Asset, error) {
	var oldStatus models.Status
	asset, err := s.applyTransition(ctx, assetID, "transfer", func(a *models.Asset) error {
		oldStatus = a.Status
		return a.Transfer(newOwner, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.recordProof(ctx, asset, "transfer")
	s.emitAudit(ctx, asset, audit.ActionAssetTransferred, oldStatus.String(), models.StatusSold)
	return asset, nil
}

// Get fetches one asset by id.
func (s *Service) Get(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	asset, err := s.store.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	return asset, nil
}

// GetBySerial fetches one asset by serial number.
func (s *Service) GetBySerial(ctx context.Context, serial string) (*models.Asset, error) {
	asset, err := s.store.GetBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	return asset, nil
}

// List pages through assets in registration order.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.Asset, error) {
	assets, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assets")
	}
	return assets, nil
}

// applyTransition runs the read-validate-write cycle shared by all mutating
// transitions. A version mismatch on write surfaces as a concurrent
// modification error; retry policy belongs to the caller.
func (s *Service) applyTransition(
	ctx context.Context,
	assetID uuid.UUID,
	kind string,
	mutate func(*models.Asset) error,
) (*models.Asset, error) {
	fail := func(err error) (*models.Asset, error) {
		s.observe(kind, err)
		return nil, err
	}

	asset, err := s.store.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fail(dErrors.New(dErrors.CodeNotFound, "asset not found"))
		}
		return fail(dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset"))
	}

	if err := mutate(asset); err != nil {
		return fail(err)
	}

	if err := s.store.Update(ctx, asset); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrVersionMismatch):
			return fail(dErrors.New(dErrors.CodeConflict,
				"asset was modified concurrently, retry the operation"))
		case errors.Is(err, sentinel.ErrNotFound):
			return fail(dErrors.New(dErrors.CodeNotFound, "asset not found"))
		default:
			return fail(dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist transition"))
		}
	}

	s.observe(kind, nil)
	return asset, nil
}

// recordProof submits the transition to the ledger and, on success, attaches
// the returned references with one best-effort follow-up write. Failures are
// logged and never affect the committed transition.
func (s *Service) recordProof(ctx context.Context, asset *models.Asset, kind string) {
	if !s.recorder.Enabled() {
		return
	}

	receipt, err := s.recorder.SubmitProof(ctx, ledger.Proof{
		AssetID:          asset.ID.String(),
		SerialNumber:     asset.SerialNumber,
		TransitionKind:   kind,
		SanitizationHash: asset.SanitizationHash,
		NewOwner:         asset.Owner,
		OccurredAt:       asset.UpdatedAt,
	})
	if s.metrics != nil {
		s.metrics.ObserveLedgerSubmission(err)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "ledger proof submission failed",
			"asset_id", asset.ID,
			"kind", kind,
			"error", err,
		)
		return
	}
	if receipt == nil {
		return
	}

	asset.LedgerTxRef = receipt.TxRef
	asset.LedgerAssetRef = receipt.AssetRef
	if err := s.store.Update(ctx, asset); err != nil {
		// Known acceptable gap: the transition is committed, only the
		// secondary reference is missing. One attempt, then log.
		s.logger.WarnContext(ctx, "failed to attach ledger references",
			"asset_id", asset.ID,
			"tx_ref", receipt.TxRef,
			"error", err,
		)
	}
}

func (s *Service) emitAudit(ctx context.Context, asset *models.Asset, action audit.Action, oldStatus string, newStatus models.Status) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, audit.Event{
		Actor:      middleware.GetActor(ctx),
		Action:     action,
		ResourceID: asset.ID.String(),
		OldStatus:  oldStatus,
		NewStatus:  newStatus.String(),
		Result:     audit.ResultSuccess,
	})
}

func (s *Service) observe(kind string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(kind, err)
	}
}
