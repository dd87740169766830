package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"commerce-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const paymentColumns = `p.id, p.order_id, p.payment_method, p.transaction_id, p.amount, p.currency, p.status, p.created_at, p.updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Payment) (*domain.Payment, error) {
	res, err := scanPayment(r.pool.QueryRow(ctx, `
INSERT INTO payments AS p (order_id, payment_method, transaction_id, amount, currency, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+paymentColumns,
		p.OrderID, p.Method, p.TransactionID, p.Amount, p.Currency, string(p.Status)))
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", p.OrderID).Msg("payment repo: create")
		return nil, err
	}
	r.logger.Debug().Int64("payment_id", res.ID).Int64("order_id", res.OrderID).Str("status", string(res.Status)).Msg("payment repo: created")
	return res, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Payment) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE payments
SET payment_method = $1, transaction_id = $2, amount = $3, currency = $4, status = $5, updated_at = now()
WHERE id = $6
`, p.Method, p.TransactionID, p.Amount, p.Currency, string(p.Status), p.ID)
	if err != nil {
		r.logger.Error().Err(err).Int64("payment_id", p.ID).Msg("payment repo: update")
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.one(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = $1`, id)
}

func (r *postgresRepo) GetByTransaction(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return r.one(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.transaction_id = $1 ORDER BY p.id DESC LIMIT 1`, transactionID)
}

func (r *postgresRepo) LatestForOrder(ctx context.Context, orderID int64) (*domain.Payment, error) {
	return r.one(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.order_id = $1 ORDER BY p.created_at DESC, p.id DESC LIMIT 1`, orderID)
}

func (r *postgresRepo) one(ctx context.Context, q string, arg any) (*domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns payments newest first, filtered by every non-empty field of q.
func (r *postgresRepo) List(ctx context.Context, q Query) ([]domain.Payment, error) {
	var conds []string
	var args []any
	if q.OrderID != 0 {
		args = append(args, q.OrderID)
		conds = append(conds, fmt.Sprintf("p.order_id = $%d", len(args)))
	}
	if q.Currency != "" {
		args = append(args, strings.ToUpper(q.Currency))
		conds = append(conds, fmt.Sprintf("p.currency = $%d", len(args)))
	}
	if q.Method != "" {
		args = append(args, q.Method)
		conds = append(conds, fmt.Sprintf("p.payment_method = $%d", len(args)))
	}
	if q.StoreID != "" {
		args = append(args, q.StoreID)
		conds = append(conds, fmt.Sprintf("o.store_id = $%d", len(args)))
	}
	sql := `SELECT ` + paymentColumns + ` FROM payments p JOIN orders o ON o.id = p.order_id`
	if len(conds) > 0 {
		sql += ` WHERE ` + strings.Join(conds, " AND ")
	}
	sql += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("payment repo: list")
		return nil, err
	}
	defer rows.Close()

	out := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *postgresRepo) AddDetail(ctx context.Context, d domain.PaymentDetail) (*domain.PaymentDetail, error) {
	if err := r.pool.QueryRow(ctx, `
INSERT INTO payment_details (payment_id, card_number, expiration_date, card_type)
VALUES ($1, $2, $3, $4)
RETURNING id
`, d.PaymentID, d.CardNumber, d.ExpirationDate, d.CardType).Scan(&d.ID); err != nil {
		r.logger.Error().Err(err).Int64("payment_id", d.PaymentID).Msg("payment repo: add detail")
		return nil, err
	}
	return &d, nil
}

func (r *postgresRepo) GetDetail(ctx context.Context, paymentID int64) (*domain.PaymentDetail, error) {
	var d domain.PaymentDetail
	err := r.pool.QueryRow(ctx, `
SELECT id, payment_id, card_number, expiration_date, card_type
FROM payment_details WHERE payment_id = $1 ORDER BY id DESC LIMIT 1
`, paymentID).Scan(&d.ID, &d.PaymentID, &d.CardNumber, &d.ExpirationDate, &d.CardType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *postgresRepo) AddPayLater(ctx context.Context, p domain.PayLater) (*domain.PayLater, error) {
	if err := r.pool.QueryRow(ctx, `
INSERT INTO pay_later (order_id, expected_date, agree, notes)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at
`, p.OrderID, p.ExpectedDate, p.Agree, p.Notes).Scan(&p.ID, &p.CreatedAt); err != nil {
		r.logger.Error().Err(err).Int64("order_id", p.OrderID).Msg("payment repo: add pay later")
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) GetPayLater(ctx context.Context, orderID int64) (*domain.PayLater, error) {
	var p domain.PayLater
	err := r.pool.QueryRow(ctx, `
SELECT id, order_id, expected_date, agree, notes, created_at
FROM pay_later WHERE order_id = $1 ORDER BY id DESC LIMIT 1
`, orderID).Scan(&p.ID, &p.OrderID, &p.ExpectedDate, &p.Agree, &p.Notes, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var status string
	if err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.TransactionID, &p.Amount, &p.Currency, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.PaymentStatus(status)
	return &p, nil
}
