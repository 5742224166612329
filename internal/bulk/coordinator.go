package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ecotrace/internal/asset/models"
	"ecotrace/internal/audit"
	"ecotrace/internal/notification"
	"ecotrace/internal/platform/metrics"
	"ecotrace/internal/platform/middleware"
	dErrors "ecotrace/pkg/domainerrors"
)

// Lifecycle is the state machine the coordinator drives. Implemented by the
// asset service; faked in tests.
type Lifecycle interface {
	Register(ctx context.Context, serialNumber, model, owner string) (*models.Asset, error)
	Sanitize(ctx context.Context, assetID uuid.UUID, sanitizationHash string) (*models.Asset, error)
	Recycle(ctx context.Context, assetID uuid.UUID) (*models.Asset, error)
	Transfer(ctx context.Context, assetID uuid.UUID, newOwner string) (*models.Asset, error)
}

// Notifier receives the aggregate summary once per completed run.
type Notifier interface {
	Dispatch(ctx context.Context, summary notification.Summary)
}

// AuditPublisher records run-level audit entries, best-effort.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// ConflictRetry bounds re-attempts of a single item after an optimistic
// concurrency conflict. Conflicts are the only failures worth retrying: the
// item may succeed once the racing writer finishes.
type ConflictRetry struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultConflictRetry gives a conflicted item two extra attempts.
func DefaultConflictRetry() ConflictRetry {
	return ConflictRetry{MaxRetries: 2, Backoff: 100 * time.Millisecond}
}

// Coordinator applies one transition kind to a list of items. A run is
// strictly sequential: sub-batches and the items inside them are processed in
// order on one logical worker, with a fixed delay between sub-batches, to
// bound load on the rate-limited ledger and evidence collaborators.
type Coordinator struct {
	lifecycle       Lifecycle
	notifier        Notifier
	auditor         AuditPublisher
	metrics         *metrics.Metrics
	logger          *slog.Logger
	interBatchDelay time.Duration
	retry           ConflictRetry
	now             func() time.Time
}

// Option configures the Coordinator.
type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func WithAuditPublisher(a AuditPublisher) Option {
	return func(c *Coordinator) { c.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithInterBatchDelay overrides the pause between sub-batches.
func WithInterBatchDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.interBatchDelay = d }
}

func WithConflictRetry(r ConflictRetry) Option {
	return func(c *Coordinator) { c.retry = r }
}

// WithClock overrides the timestamp source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New constructs a Coordinator around the given state machine.
func New(lifecycle Lifecycle, opts ...Option) *Coordinator {
	c := &Coordinator{
		lifecycle:       lifecycle,
		logger:          slog.Default(),
		interBatchDelay: time.Second,
		retry:           DefaultConflictRetry(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunBulk validates, partitions, and applies one transition kind to every
// item, returning a single deterministic summary. Per-item business failures
// are captured in the summary, never raised; the only error return is a
// malformed request (unknown kind).
func (c *Coordinator) RunBulk(ctx context.Context, kind Kind, items []Item, opts Options) (*Summary, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	opts = opts.normalize()

	summary := &Summary{
		RunID:     uuid.New(),
		Kind:      kind,
		Total:     len(items),
		Results:   make([]ItemResult, len(items)),
		StartTime: c.now(),
	}
	for i := range items {
		summary.Results[i].Input = items[i]
	}

	if len(items) == 0 {
		return c.finish(ctx, summary, opts), nil
	}

	// Static validation pass over the full input list before any mutation.
	pending, fatal := c.validateAll(kind, items, opts, summary)
	if opts.ValidateOnly || fatal {
		// Under ValidateOnly the passing items report success without an
		// output ref; on a fatal validation failure nothing was attempted.
		for _, idx := range pending {
			summary.Results[idx].Attempted = opts.ValidateOnly
			summary.Results[idx].Success = opts.ValidateOnly
		}
		return c.finish(ctx, summary, opts), nil
	}

	c.process(ctx, kind, items, opts, pending, summary)
	return c.finish(ctx, summary, opts), nil
}

// Validate runs only the static validation pass; no state is mutated. It is
// the entry point behind the validate-only API and reuses RunBulk's pass.
func (c *Coordinator) Validate(ctx context.Context, kind Kind, items []Item, opts Options) (*Summary, error) {
	opts.ValidateOnly = true
	return c.RunBulk(ctx, kind, items, opts)
}

// validateAll fills validation failures into the summary and returns the
// indices that passed, plus whether a fatal failure aborts the run.
func (c *Coordinator) validateAll(kind Kind, items []Item, opts Options, summary *Summary) (pending []int, fatal bool) {
	seenSerials := make(map[string]bool)
	for i, item := range items {
		err, duplicate := item.validate(kind, seenSerials)
		if err == nil {
			pending = append(pending, i)
			continue
		}
		summary.Results[i].Attempted = true
		summary.Results[i].Error = itemErrorFrom(err)

		if duplicate && opts.SkipDuplicates {
			// Marked failed, processing continues regardless of ContinueOnError.
			continue
		}
		if !opts.ContinueOnError {
			fatal = true
		}
	}
	return pending, fatal
}

// process drives the validated items through the state machine in consecutive
// sub-batches, strictly in input order.
func (c *Coordinator) process(ctx context.Context, kind Kind, items []Item, opts Options, pending []int, summary *Summary) {
	stopped := false
	for batchStart := 0; batchStart < len(pending) && !stopped; batchStart += opts.BatchSize {
		batchEnd := min(batchStart+opts.BatchSize, len(pending))

		if batchStart > 0 {
			// Throttle between sub-batches; an expired context ends the run
			// while already-committed items stay committed.
			if !c.pause(ctx) {
				break
			}
		}

		for _, idx := range pending[batchStart:batchEnd] {
			// Cancellation is checked between items, not only between
			// sub-batches, so large runs abort promptly.
			if ctx.Err() != nil {
				stopped = true
				break
			}

			result := &summary.Results[idx]
			result.Attempted = true

			asset, err := c.applyItem(ctx, kind, items[idx])
			if err != nil {
				result.Error = itemErrorFrom(err)
				if c.metrics != nil {
					c.metrics.ObserveTransition(string(kind), err)
				}
				if opts.SkipDuplicates && dErrors.HasCode(err, dErrors.CodeDuplicateSerial) {
					// A serial already registered in an earlier run is marked
					// failed but never stops the run, same as an in-batch
					// duplicate caught during validation.
					continue
				}
				if !opts.ContinueOnError {
					c.logger.WarnContext(ctx, "bulk run stopped on first failure",
						"run_id", summary.RunID,
						"kind", kind,
						"item_index", idx,
						"error", err,
					)
					stopped = true
					break
				}
				continue
			}
			result.Success = true
			result.OutputRef = asset.ID.String()
		}
	}
}

// applyItem invokes the state machine operation matching the run's kind,
// retrying only concurrent-modification conflicts within the bounded policy.
func (c *Coordinator) applyItem(ctx context.Context, kind Kind, item Item) (*models.Asset, error) {
	var (
		asset *models.Asset
		err   error
	)
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retry.Backoff):
			}
		}
		asset, err = c.invoke(ctx, kind, item)
		if err == nil || !dErrors.HasCode(err, dErrors.CodeConflict) {
			return asset, err
		}
	}
	return nil, err
}

func (c *Coordinator) invoke(ctx context.Context, kind Kind, item Item) (*models.Asset, error) {
	if kind == KindRegister {
		return c.lifecycle.Register(ctx, item.SerialNumber, item.Model, item.Owner)
	}

	assetID, err := uuid.Parse(item.AssetID)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "asset_id %q is not a valid id", item.AssetID)
	}
	switch kind {
	case KindSanitize:
		return c.lifecycle.Sanitize(ctx, assetID, item.SanitizationHash)
	case KindRecycle:
		return c.lifecycle.Recycle(ctx, assetID)
	case KindTransfer:
		return c.lifecycle.Transfer(ctx, assetID, item.NewOwner)
	}
	return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown bulk operation kind %q", kind)
}

// pause sleeps for the inter-batch delay, returning false when the context
// expires first.
func (c *Coordinator) pause(ctx context.Context) bool {
	if c.interBatchDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.interBatchDelay):
		return true
	}
}

// finish stamps timings, tallies outcomes, and fans out the run-level side
// effects: one audit entry and exactly one notification.
func (c *Coordinator) finish(ctx context.Context, summary *Summary, opts Options) *Summary {
	summary.EndTime = c.now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	summary.tally()

	if c.metrics != nil {
		c.metrics.ObserveBulkRun(string(summary.Kind), summary.Successful, summary.Failed, summary.Duration)
	}

	if opts.ValidateOnly {
		return summary
	}

	if c.auditor != nil {
		result := audit.ResultSuccess
		if summary.Failed > 0 {
			result = audit.ResultFailure
		}
		c.auditor.Emit(ctx, audit.Event{
			Actor:      middleware.GetActor(ctx),
			Action:     audit.ActionBulkRunCompleted,
			ResourceID: summary.RunID.String(),
			Result:     result,
			Detail: fmt.Sprintf("%s: %d successful, %d failed",
				summary.Kind, summary.Successful, summary.Failed),
		})
	}

	if c.notifier != nil {
		// Use a fresh context so a cancelled run still reports its summary.
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		c.notifier.Dispatch(notifyCtx, notification.Summary{
			OperationKind: string(summary.Kind),
			Total:         summary.Total,
			Successful:    summary.Successful,
			Failed:        summary.Failed,
			Duration:      summary.Duration,
		})
	}

	return summary
}
