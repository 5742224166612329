package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ecotrace/internal/asset/models"
	"ecotrace/pkg/sentinel"
)

// Postgres persists asset records in the assets table. The serial number
// carries a case-insensitive unique index; optimistic concurrency rides on the
// version column.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const assetColumns = `
	id, serial_number, model, status, owner, sanitization_hash, carbon_credits,
	registration_time, sanitization_time, recycling_time,
	ledger_tx_ref, ledger_asset_ref, version, updated_at
`

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	return scanAsset(row)
}

func (s *Postgres) GetBySerial(ctx context.Context, serial string) (*models.Asset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE lower(serial_number) = lower($1)`,
		serial)
	return scanAsset(row)
}

func (s *Postgres) Create(ctx context.Context, asset *models.Asset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (
			id, serial_number, model, status, owner, sanitization_hash, carbon_credits,
			registration_time, sanitization_time, recycling_time,
			ledger_tx_ref, ledger_asset_ref, version, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		asset.ID,
		asset.SerialNumber,
		asset.Model,
		int(asset.Status),
		asset.Owner,
		nullString(asset.SanitizationHash),
		asset.CarbonCredits,
		asset.RegistrationTime,
		nullTime(asset.SanitizationTime),
		nullTime(asset.RecyclingTime),
		nullString(asset.LedgerTxRef),
		nullString(asset.LedgerAssetRef),
		asset.Version,
		asset.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("serial %q: %w", asset.SerialNumber, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, asset *models.Asset) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE assets SET
			model = $3, status = $4, owner = $5, sanitization_hash = $6,
			carbon_credits = $7, sanitization_time = $8, recycling_time = $9,
			ledger_tx_ref = $10, ledger_asset_ref = $11,
			version = version + 1, updated_at = $12
		WHERE id = $1 AND version = $2
	`,
		asset.ID,
		asset.Version,
		asset.Model,
		int(asset.Status),
		asset.Owner,
		nullString(asset.SanitizationHash),
		asset.CarbonCredits,
		nullTime(asset.SanitizationTime),
		nullTime(asset.RecyclingTime),
		nullString(asset.LedgerTxRef),
		nullString(asset.LedgerAssetRef),
		asset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update asset rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or another writer bumped the version first.
		if _, getErr := s.Get(ctx, asset.ID); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrVersionMismatch
	}
	asset.Version++
	return nil
}

func (s *Postgres) List(ctx context.Context, limit, offset int) ([]*models.Asset, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets ORDER BY registration_time LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var (
		asset            models.Asset
		status           int
		sanitizationHash sql.NullString
		sanitizationTime sql.NullTime
		recyclingTime    sql.NullTime
		ledgerTxRef      sql.NullString
		ledgerAssetRef   sql.NullString
	)
	err := row.Scan(
		&asset.ID,
		&asset.SerialNumber,
		&asset.Model,
		&status,
		&asset.Owner,
		&sanitizationHash,
		&asset.CarbonCredits,
		&asset.RegistrationTime,
		&sanitizationTime,
		&recyclingTime,
		&ledgerTxRef,
		&ledgerAssetRef,
		&asset.Version,
		&asset.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	asset.Status = models.Status(status)
	asset.SanitizationHash = sanitizationHash.String
	asset.LedgerTxRef = ledgerTxRef.String
	asset.LedgerAssetRef = ledgerAssetRef.String
	if sanitizationTime.Valid {
		asset.SanitizationTime = sanitizationTime.Time
	}
	if recyclingTime.Valid {
		asset.RecyclingTime = recyclingTime.Time
	}
	return &asset, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
