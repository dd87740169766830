package price

import (
	"context"
	"errors"

	"commerce-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Get(ctx context.Context, attributeID int64) (*Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `
SELECT attribute_id, base_price, discount, currency
FROM prices
WHERE attribute_id = $1
`, attributeID).Scan(&rec.AttributeID, &rec.BasePrice, &rec.Discount, &rec.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Int64("attribute_id", attributeID).Msg("price repo: get")
		return nil, err
	}
	return &rec, nil
}

// Save overwrites base, discount and currency of the attribute's price.
func (r *postgresRepo) Save(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO prices (attribute_id, base_price, discount, currency)
VALUES ($1, $2, $3, $4)
ON CONFLICT (attribute_id) DO UPDATE SET
    base_price = EXCLUDED.base_price,
    discount = EXCLUDED.discount,
    currency = EXCLUDED.currency,
    updated_at = now()
`, rec.AttributeID, rec.BasePrice, rec.Discount, rec.Currency)
	if err != nil {
		r.logger.Error().Err(err).Int64("attribute_id", rec.AttributeID).Msg("price repo: save")
	}
	return err
}

func (r *postgresRepo) Delete(ctx context.Context, attributeID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM prices WHERE attribute_id = $1`, attributeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
