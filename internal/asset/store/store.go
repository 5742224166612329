// Package store provides durable keyed storage for asset records. All
// implementations enforce serial-number uniqueness on create and optimistic
// concurrency on update.
package store

import (
	"context"

	"github.com/google/uuid"

	"ecotrace/internal/asset/models"
)

// Store is the asset record storage contract.
//
// Update is compare-and-swap: it succeeds only when the stored Version equals
// the Version carried by the given record, then persists the record with the
// version bumped. A mismatch returns sentinel.ErrVersionMismatch (wrapped),
// which the lifecycle service surfaces as a concurrent-modification error.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	GetBySerial(ctx context.Context, serial string) (*models.Asset, error)
	Create(ctx context.Context, asset *models.Asset) error
	Update(ctx context.Context, asset *models.Asset) error
	List(ctx context.Context, limit, offset int) ([]*models.Asset, error)
	Count(ctx context.Context) (int, error)
}
