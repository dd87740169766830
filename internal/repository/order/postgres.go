package order

import (
	"context"
	"errors"
	"fmt"

	"commerce-backoffice/internal/db"
	"commerce-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `id, store_id, user_id, status, currency, subtotal, tax_total, discount_total,
       shipping_total, grand_total, created_at, updated_at`

const addressColumns = `order_id, full_name, phone, email, address_line1, address_line2, city, state, postal_code, country`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

// Commit persists every order with its taxes, items and addresses, deletes
// the originating cart and the staging record. Nothing is kept when any step
// fails. A missing staging record aborts the commit, so a handle can be
// committed only once.
func (r *postgresRepo) Commit(ctx context.Context, in CommitInput) ([]domain.Order, error) {
	saved := make([]domain.Order, 0, len(in.Orders))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, o := range in.Orders {
			if err := insertOrder(ctx, tx, &o); err != nil {
				r.logger.Error().Err(err).Str("store_id", o.StoreID).Msg("order repo: insert order")
				return err
			}
			if in.Billing != nil {
				if err := insertAddress(ctx, tx, "billing_addresses", o.ID, *in.Billing); err != nil {
					return err
				}
				b := *in.Billing
				o.Billing = &b
			}
			if in.Shipping != nil {
				if err := insertAddress(ctx, tx, "shipping_addresses", o.ID, *in.Shipping); err != nil {
					return err
				}
				s := *in.Shipping
				o.Shipping = &s
			}
			saved = append(saved, o)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, in.CartID); err != nil {
			return fmt.Errorf("delete cart: %w", err)
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM staging_records WHERE id = $1`, in.StagingID)
		if err != nil {
			return fmt.Errorf("delete staging record: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrStagingNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info().Int64("cart_id", in.CartID).Int("orders", len(saved)).Msg("order repo: committed checkout")
	return saved, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	err := tx.QueryRow(ctx, `
INSERT INTO orders (store_id, user_id, status, currency, subtotal, tax_total, discount_total, shipping_total, grand_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at, updated_at
`, o.StoreID, o.UserID, string(o.Status), o.Currency, o.Subtotal, o.TaxTotal, o.DiscountTotal, o.ShippingTotal, o.GrandTotal).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	taxes := make([]domain.OrderTax, 0, len(o.Taxes))
	for _, t := range o.Taxes {
		t.OrderID = o.ID
		if err := tx.QueryRow(ctx, `
INSERT INTO order_taxes (order_id, name, rate, amount)
VALUES ($1, $2, $3, $4)
RETURNING id
`, o.ID, t.Name, t.Rate, domain.RoundMoney(t.Amount)).Scan(&t.ID); err != nil {
			return fmt.Errorf("insert order tax: %w", err)
		}
		taxes = append(taxes, t)
	}
	o.Taxes = taxes

	items := make([]domain.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		it.OrderID = o.ID
		if err := tx.QueryRow(ctx, `
INSERT INTO order_items (order_id, product_id, attribute_id, name, unit_price, quantity, total_price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`, o.ID, it.ProductID, it.AttributeID, it.Name, domain.RoundMoney(it.UnitPrice), it.Quantity, domain.RoundMoney(it.TotalPrice)).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		items = append(items, it)
	}
	o.Items = items
	return nil
}

func insertAddress(ctx context.Context, tx pgx.Tx, table string, orderID int64, a domain.Address) error {
	_, err := tx.Exec(ctx, `INSERT INTO `+table+` (`+addressColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		orderID, a.FullName, a.Phone, a.Email, a.AddressLine1, a.AddressLine2, a.City, a.State, a.PostalCode, a.Country)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// GetByID loads an order with items, taxes and addresses.
func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("order repo: get")
		return nil, err
	}
	orders := []domain.Order{*o}
	if err := r.loadDetails(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns orders newest first, eagerly loaded. An empty storeID lists
// every store.
func (r *postgresRepo) List(ctx context.Context, storeID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE ($1 = '' OR store_id = $1) ORDER BY created_at DESC, id DESC`, storeID)
	if err != nil {
		r.logger.Error().Err(err).Str("store_id", storeID).Msg("order repo: list")
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Summary groups orders per day within the requested year and optional month
// and status.
func (r *postgresRepo) Summary(ctx context.Context, f domain.OrderSummaryFilter) ([]domain.OrderSummaryRow, error) {
	rows, err := r.pool.Query(ctx, `
SELECT date_trunc('day', created_at) AS day, COUNT(*), COALESCE(SUM(grand_total), 0)
FROM orders
WHERE EXTRACT(YEAR FROM created_at) = $1
  AND ($2 = 0 OR EXTRACT(MONTH FROM created_at) = $2)
  AND ($3 = '' OR status = $3)
GROUP BY day
ORDER BY day
`, f.Year, f.Month, string(f.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.OrderSummaryRow{}
	for rows.Next() {
		var row domain.OrderSummaryRow
		if err := rows.Scan(&row.Day, &row.Count, &row.GrandTotal); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *postgresRepo) loadDetails(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []domain.OrderItem{}
		orders[i].Taxes = []domain.OrderTax{}
	}

	itemRows, err := r.pool.Query(ctx, `
SELECT id, order_id, product_id, attribute_id, name, unit_price, quantity, total_price
FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	for itemRows.Next() {
		var it domain.OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.AttributeID, &it.Name, &it.UnitPrice, &it.Quantity, &it.TotalPrice); err != nil {
			itemRows.Close()
			return err
		}
		o := &orders[index[it.OrderID]]
		o.Items = append(o.Items, it)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return err
	}

	taxRows, err := r.pool.Query(ctx, `
SELECT id, order_id, name, rate, amount
FROM order_taxes WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	for taxRows.Next() {
		var t domain.OrderTax
		if err := taxRows.Scan(&t.ID, &t.OrderID, &t.Name, &t.Rate, &t.Amount); err != nil {
			taxRows.Close()
			return err
		}
		o := &orders[index[t.OrderID]]
		o.Taxes = append(o.Taxes, t)
	}
	taxRows.Close()
	if err := taxRows.Err(); err != nil {
		return err
	}

	for _, table := range []string{"billing_addresses", "shipping_addresses"} {
		rows, err := r.pool.Query(ctx, `SELECT `+addressColumns+` FROM `+table+` WHERE order_id = ANY($1) ORDER BY id`, ids)
		if err != nil {
			return err
		}
		for rows.Next() {
			var orderID int64
			var a domain.Address
			if err := rows.Scan(&orderID, &a.FullName, &a.Phone, &a.Email, &a.AddressLine1, &a.AddressLine2, &a.City, &a.State, &a.PostalCode, &a.Country); err != nil {
				rows.Close()
				return err
			}
			o := &orders[index[orderID]]
			if table == "billing_addresses" {
				o.Billing = &a
			} else {
				o.Shipping = &a
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status string
	if err := row.Scan(&o.ID, &o.StoreID, &o.UserID, &status, &o.Currency, &o.Subtotal, &o.TaxTotal, &o.DiscountTotal,
		&o.ShippingTotal, &o.GrandTotal, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
