package notification

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ecotrace/internal/platform/metrics"
)

// Dispatcher fans one summary out to every configured channel. Channel
// failures are logged and counted but never returned to the caller.
type Dispatcher struct {
	channels []Channel
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(channels []Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{channels: channels, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends the summary on every channel concurrently and waits for all
// attempts to finish. Each channel's outcome is isolated.
func (d *Dispatcher) Dispatch(ctx context.Context, summary Summary) {
	g, ctx := errgroup.WithContext(ctx)
	for _, ch := range d.channels {
		g.Go(func() error {
			err := ch.Send(ctx, summary)
			if d.metrics != nil {
				d.metrics.ObserveNotification(ch.Name(), err)
			}
			if err != nil {
				d.logger.WarnContext(ctx, "notification delivery failed",
					"channel", ch.Name(),
					"operation", summary.OperationKind,
					"error", err,
				)
			}
			// Failures stay inside the goroutine so sibling channels run.
			return nil
		})
	}
	_ = g.Wait()
}
