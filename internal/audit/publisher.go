package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher captures structured audit events. It stamps identity and time,
// then appends through the storage layer so tests can swap sinks easily.
// Emit never propagates store failures; it logs them and returns nil, keeping
// audit strictly best-effort for callers.
type Publisher struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithClock overrides the timestamp source for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "audit append failed",
			"action", event.Action,
			"resource_id", event.ResourceID,
			"error", err,
		)
	}
}

func (p *Publisher) List(ctx context.Context, resourceID string) ([]Event, error) {
	return p.store.ListByResource(ctx, resourceID)
}
