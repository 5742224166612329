package audit

import "context"

// Store persists audit events. Append is fire-and-forget from the caller's
// perspective; implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByResource(ctx context.Context, resourceID string) ([]Event, error)
}
