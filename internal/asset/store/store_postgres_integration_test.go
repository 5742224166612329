//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ecotrace/internal/asset/models"
	"ecotrace/internal/asset/store"
	"ecotrace/pkg/sentinel"
	"ecotrace/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "assets")
	s.Require().NoError(err)
}

func newTestAsset(serial string) *models.Asset {
	asset, _ := models.NewAsset(uuid.New(), serial, "ThinkPad T14", "acme", time.Now().UTC())
	return asset
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	asset := newTestAsset("SN-PG-1")
	s.Require().NoError(s.store.Create(ctx, asset))

	got, err := s.store.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(asset.SerialNumber, got.SerialNumber)
	s.Equal(models.StatusRegistered, got.Status)
	s.EqualValues(1, got.Version)

	bySerial, err := s.store.GetBySerial(ctx, "sn-pg-1")
	s.Require().NoError(err)
	s.Equal(asset.ID, bySerial.ID)
}

func (s *PostgresStoreSuite) TestOptimisticUpdate() {
	ctx := context.Background()
	asset := newTestAsset("SN-PG-CAS")
	s.Require().NoError(s.store.Create(ctx, asset))

	stale := asset.Clone()

	asset.Owner = "winner"
	s.Require().NoError(s.store.Update(ctx, asset))
	s.EqualValues(2, asset.Version)

	stale.Owner = "loser"
	err := s.store.Update(ctx, stale)
	s.Require().ErrorIs(err, sentinel.ErrVersionMismatch)

	got, err := s.store.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal("winner", got.Owner)
}

func (s *PostgresStoreSuite) TestUpdateMissingAsset() {
	ctx := context.Background()
	ghost := newTestAsset("SN-PG-GHOST")
	s.ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestNullableFieldsSurvive() {
	ctx := context.Background()
	asset := newTestAsset("SN-PG-NULL")
	s.Require().NoError(s.store.Create(ctx, asset))

	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(asset.Sanitize("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", now))
	asset.LedgerTxRef = "tx-000001"
	s.Require().NoError(s.store.Update(ctx, asset))

	got, err := s.store.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(asset.SanitizationHash, got.SanitizationHash)
	s.WithinDuration(now, got.SanitizationTime, time.Millisecond)
	s.Equal("tx-000001", got.LedgerTxRef)
	s.True(got.RecyclingTime.IsZero())
}

// TestConcurrentUniqueSerialViolation verifies that concurrent registrations
// of the same serial result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentUniqueSerialViolation() {
	ctx := context.Background()
	serial := "SN-PG-RACE-" + uuid.NewString()
	const goroutines = 25

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newTestAsset(serial))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.EqualValues(1, successCount.Load())
	s.EqualValues(goroutines-1, conflictCount.Load())
}

func (s *PostgresStoreSuite) TestListOrderingAndCount() {
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		asset := newTestAsset(uuid.NewString())
		asset.RegistrationTime = base.Add(time.Duration(2-i) * time.Minute)
		s.Require().NoError(s.store.Create(ctx, asset))
	}

	all, err := s.store.List(ctx, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	for i := 1; i < len(all); i++ {
		s.False(all[i].RegistrationTime.Before(all[i-1].RegistrationTime))
	}

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}
