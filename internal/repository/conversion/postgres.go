package conversion

import (
	"context"
	"errors"

	"commerce-backoffice/internal/db"
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

func (r *postgresRepo) Get(ctx context.Context, base string) (*domain.RateTable, error) {
	t, err := scanTable(r.pool.QueryRow(ctx, `
SELECT code, rate_data, last_update, next_update
FROM conversion_rates
WHERE code = $1
`, base))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Str("base", base).Msg("conversion repo: get")
		return nil, err
	}
	return t, nil
}

// Replace swaps the row of table.Base in one transaction.
func (r *postgresRepo) Replace(ctx context.Context, table domain.RateTable) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM conversion_rates WHERE code = $1`, table.Base); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO conversion_rates (code, rate_data, last_update, next_update)
VALUES ($1, $2, $3, $4)
`, table.Base, table.Rates, table.LastUpdate, table.NextUpdate); err != nil {
			r.logger.Error().Err(err).Str("base", table.Base).Msg("conversion repo: insert")
			return err
		}
		return nil
	})
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.RateTable, error) {
	rows, err := r.pool.Query(ctx, `SELECT code, rate_data, last_update, next_update FROM conversion_rates ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RateTable
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTable(row pgx.Row) (*domain.RateTable, error) {
	var t domain.RateTable
	if err := row.Scan(&t.Base, &t.Rates, &t.LastUpdate, &t.NextUpdate); err != nil {
		return nil, err
	}
	return &t, nil
}
