package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"commerce-backoffice/internal/db"
	"commerce-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const cartColumns = `id, user_id, session_id, currency, total, note_data, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error) {
	q := `
INSERT INTO carts (user_id, session_id, currency, total)
VALUES ($1, $2, $3, 0)
RETURNING ` + cartColumns
	cart, err := scanCart(r.pool.QueryRow(ctx, q, in.UserID, in.SessionID, in.Currency))
	if err != nil {
		r.logger.Error().Err(err).Msg("cart repo: create")
		return nil, err
	}
	cart.Items = []domain.CartItem{}
	r.logger.Debug().Int64("cart_id", cart.ID).Msg("cart repo: created")
	return cart, nil
}

func (r *postgresRepo) Find(ctx context.Context, filter domain.CartFilter) (*domain.Cart, error) {
	if filter.Empty() {
		return nil, errors.New("cart filter requires id, user or session")
	}
	var conds []string
	var args []any
	if filter.ID != nil {
		args = append(args, *filter.ID)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.SessionID != nil {
		args = append(args, *filter.SessionID)
		conds = append(conds, fmt.Sprintf("session_id = $%d", len(args)))
	}
	q := `SELECT ` + cartColumns + ` FROM carts WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY updated_at DESC, id DESC LIMIT 1`

	cart, err := scanCart(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Msg("cart repo: find")
		return nil, err
	}
	if cart.Items, err = r.items(ctx, cart.ID); err != nil {
		return nil, err
	}
	cart.Subtotal = cart.ComputeSubtotal()
	return cart, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Cart, error) {
	return r.list(ctx, `SELECT `+cartColumns+` FROM carts ORDER BY id`)
}

func (r *postgresRepo) ListNonEmpty(ctx context.Context) ([]domain.Cart, error) {
	return r.list(ctx, `SELECT `+cartColumns+` FROM carts WHERE total > 0 ORDER BY id`)
}

func (r *postgresRepo) list(ctx context.Context, q string) ([]domain.Cart, error) {
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error().Err(err).Msg("cart repo: list")
		return nil, err
	}
	defer rows.Close()

	var out []domain.Cart
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// AddItem upserts the (product, attribute) line and refreshes the cart total.
// An existing line keeps its unit price and grows in quantity.
func (r *postgresRepo) AddItem(ctx context.Context, in AddItemInput) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, attribute_id, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (cart_id, product_id, (COALESCE(attribute_id, -1)))
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
`, in.CartID, in.ProductID, in.AttributeID, in.Quantity, in.UnitPrice); err != nil {
			r.logger.Error().Err(err).Int64("cart_id", in.CartID).Int64("product_id", in.ProductID).Msg("cart repo: add item")
			return err
		}
		return updateCartTotal(ctx, tx, in.CartID)
	})
}

func (r *postgresRepo) RemoveItem(ctx context.Context, itemID int64) (bool, error) {
	removed := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var cartID int64
		err := tx.QueryRow(ctx, `DELETE FROM cart_items WHERE id = $1 RETURNING cart_id`, itemID).Scan(&cartID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		removed = true
		return updateCartTotal(ctx, tx, cartID)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// RemoveItemsByProduct deletes matching lines from every cart. Totals are
// left as they are.
func (r *postgresRepo) RemoveItemsByProduct(ctx context.Context, productID int64) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE product_id = $1`, productID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// RemoveItemsByAttribute deletes matching lines from every cart. Totals are
// left as they are.
func (r *postgresRepo) RemoveItemsByAttribute(ctx context.Context, attributeID int64) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE attribute_id = $1`, attributeID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) SetNote(ctx context.Context, cartID int64, note json.RawMessage) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE carts SET note_data = $1, updated_at = now() WHERE id = $2`, []byte(note), cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ClearItems(ctx context.Context, cartID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return err
		}
		return updateCartTotal(ctx, tx, cartID)
	})
}

func (r *postgresRepo) Delete(ctx context.Context, cartID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	return err
}

func (r *postgresRepo) DeleteEmpty(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE total = 0`)
	if err != nil {
		return 0, err
	}
	r.logger.Info().Int64("count", cmd.RowsAffected()).Msg("cart repo: removed empty carts")
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) items(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, cart_id, product_id, attribute_id, quantity, unit_price, created_at
FROM cart_items
WHERE cart_id = $1
ORDER BY id ASC
`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.AttributeID, &it.Quantity, &it.UnitPrice, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var c domain.Cart
	var note []byte
	if err := row.Scan(&c.ID, &c.UserID, &c.SessionID, &c.Currency, &c.Total, &note, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if len(note) > 0 {
		c.Note = note
	}
	return &c, nil
}

func updateCartTotal(ctx context.Context, tx pgx.Tx, cartID int64) error {
	_, err := tx.Exec(ctx, `
UPDATE carts
SET total = COALESCE((
	SELECT SUM(quantity * unit_price)
	FROM cart_items
	WHERE cart_id = $1
), 0),
    updated_at = now()
WHERE id = $1
`, cartID)
	return err
}
