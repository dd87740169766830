package staging

import (
	"context"
	"encoding/json"
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

func (r *postgresRepo) Put(ctx context.Context, payload json.RawMessage) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `INSERT INTO staging_records (payload) VALUES ($1) RETURNING id`, []byte(payload)).Scan(&id); err != nil {
		r.logger.Error().Err(err).Msg("staging repo: put")
		return 0, err
	}
	r.logger.Debug().Int64("handle", id).Msg("staging repo: put")
	return id, nil
}

func (r *postgresRepo) Get(ctx context.Context, id int64) (*domain.StagingRecord, error) {
	var rec domain.StagingRecord
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT id, payload, created_at, updated_at FROM staging_records WHERE id = $1`, id).
		Scan(&rec.ID, &payload, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStagingNotFound
		}
		return nil, err
	}
	rec.Payload = payload
	return &rec, nil
}

func (r *postgresRepo) Replace(ctx context.Context, id int64, payload json.RawMessage) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE staging_records SET payload = $1, updated_at = now() WHERE id = $2`, []byte(payload), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrStagingNotFound
	}
	return nil
}

func (r *postgresRepo) Remove(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM staging_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrStagingNotFound
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `TRUNCATE TABLE staging_records RESTART IDENTITY`)
	if err == nil {
		r.logger.Info().Msg("staging repo: cleared")
	}
	return err
}
