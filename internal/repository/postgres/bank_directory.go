// ==============================================================================
// BANK DIRECTORY REPOSITORY - internal/repository/postgres/bank_directory.go
// ==============================================================================
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"payreq/internal/domain"
	"payreq/pkg/errors"
)

// BankDirectoryRepository persists directory entries already resolved from
// the external bank identifier directory.
type BankDirectoryRepository struct {
	db *sqlx.DB
}

func NewBankDirectoryRepository(db *sqlx.DB) *BankDirectoryRepository {
	return &BankDirectoryRepository{db: db}
}

func (r *BankDirectoryRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.BankInfo, error) {
	var info domain.BankInfo
	query := `
		SELECT bank_name, country, country_code, city, region
		FROM bank_directory
		WHERE identifier = $1
	`

	err := r.db.GetContext(ctx, &info, query, identifier)
	if err == sql.ErrNoRows {
		return nil, errors.ErrBankNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find directory entry")
	}

	return &info, nil
}

func (r *BankDirectoryRepository) Upsert(ctx context.Context, identifier string, info *domain.BankInfo) error {
	query := `
		INSERT INTO bank_directory (
			identifier, bank_name, country, country_code, city, region, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identifier) DO UPDATE SET
			bank_name = EXCLUDED.bank_name,
			country = EXCLUDED.country,
			country_code = EXCLUDED.country_code,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			resolved_at = EXCLUDED.resolved_at
	`

	_, err := r.db.ExecContext(ctx, query,
		identifier, info.BankName, info.Country, info.CountryCode,
		info.City, info.Region, time.Now(),
	)

	return errors.Wrap(err, "failed to upsert directory entry")
}
