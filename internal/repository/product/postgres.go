package product

import (
	"context"
	"errors"

	"commerce-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	productColumns   = `id, store_id, title, sku, category, images, description, active, created_at, updated_at`
	attributeColumns = `id, product_id, name, position, always_in_stock, stock_level, description,
       default_cart_quantity, max_cart_quantity, shippable, sizes, dimensions`
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

// List returns active and inactive products, newest first. An empty storeID
// lists every store.
func (r *postgresRepo) List(ctx context.Context, storeID string) ([]domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE ($1 = '' OR store_id = $1) ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, q, storeID)
	if err != nil {
		r.logger.Error().Err(err).Str("store_id", storeID).Msg("product repo: list")
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug().Str("store_id", storeID).Int("count", len(result)).Msg("product repo: list")
	return result, nil
}

// GetByID loads a product with its attributes ordered by position.
func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("product_id", id).Msg("product repo: not found")
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("product repo: get")
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+attributeColumns+` FROM product_attributes WHERE product_id = $1 ORDER BY position, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAttribute(rows)
		if err != nil {
			return nil, err
		}
		p.Attributes = append(p.Attributes, *a)
	}
	return p, rows.Err()
}

func (r *postgresRepo) GetAttribute(ctx context.Context, id int64) (*domain.ProductAttribute, error) {
	a, err := scanAttribute(r.pool.QueryRow(ctx, `SELECT `+attributeColumns+` FROM product_attributes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// Upsert inserts or updates a product keyed by SKU.
func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	const q = `
INSERT INTO products (store_id, title, sku, category, images, description, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (sku) DO UPDATE SET
    store_id = EXCLUDED.store_id,
    title = EXCLUDED.title,
    category = EXCLUDED.category,
    images = EXCLUDED.images,
    description = EXCLUDED.description,
    active = EXCLUDED.active,
    updated_at = now()
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q, p.StoreID, p.Title, p.SKU, p.Category, images, p.Description, p.Active))
	if err != nil {
		r.logger.Error().Err(err).Str("sku", p.SKU).Msg("product repo: upsert")
		return nil, err
	}
	r.logger.Debug().Str("sku", res.SKU).Int64("product_id", res.ID).Msg("product repo: upserted")
	return res, nil
}

// UpsertAttribute inserts or updates a variant keyed by (product, name).
func (r *postgresRepo) UpsertAttribute(ctx context.Context, a domain.ProductAttribute) (*domain.ProductAttribute, error) {
	sizes := a.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	const q = `
INSERT INTO product_attributes (product_id, name, position, always_in_stock, stock_level, description,
    default_cart_quantity, max_cart_quantity, shippable, sizes, dimensions)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (product_id, name) DO UPDATE SET
    position = EXCLUDED.position,
    always_in_stock = EXCLUDED.always_in_stock,
    stock_level = EXCLUDED.stock_level,
    description = EXCLUDED.description,
    default_cart_quantity = EXCLUDED.default_cart_quantity,
    max_cart_quantity = EXCLUDED.max_cart_quantity,
    shippable = EXCLUDED.shippable,
    sizes = EXCLUDED.sizes,
    dimensions = EXCLUDED.dimensions
RETURNING ` + attributeColumns
	res, err := scanAttribute(r.pool.QueryRow(ctx, q, a.ProductID, a.Name, a.Position, a.AlwaysInStock, a.StockLevel,
		a.Description, a.DefaultCartQuantity, a.MaxCartQuantity, a.Shippable, sizes, a.Dimensions))
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", a.ProductID).Str("name", a.Name).Msg("product repo: upsert attribute")
		return nil, err
	}
	return res, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.StoreID, &p.Title, &p.SKU, &p.Category, &p.Images, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanAttribute(row pgx.Row) (*domain.ProductAttribute, error) {
	var a domain.ProductAttribute
	if err := row.Scan(&a.ID, &a.ProductID, &a.Name, &a.Position, &a.AlwaysInStock, &a.StockLevel, &a.Description,
		&a.DefaultCartQuantity, &a.MaxCartQuantity, &a.Shippable, &a.Sizes, &a.Dimensions); err != nil {
		return nil, err
	}
	return &a, nil
}
