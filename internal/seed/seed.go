package seed

import (
	"context"
	"fmt"

	"commerce-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

type productWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpsertAttribute(ctx context.Context, attr domain.ProductAttribute) (*domain.ProductAttribute, error)
}

type priceWriter interface {
	Save(ctx context.Context, p *domain.Price) error
}

type customerWriter interface {
	Upsert(ctx context.Context, c domain.Customer) (*domain.Customer, error)
}

// Deps are the writers the seed goes through.
type Deps struct {
	Products  productWriter
	Prices    priceWriter
	Customers customerWriter
}

type variantSeed struct {
	Name     string
	Price    string
	Discount string
	MaxQty   int
}

type productSeed struct {
	SKU         string
	Title       string
	Description string
	Category    string
	Variants    []variantSeed
}

var demoProducts = []productSeed{
	{
		SKU:         "SKU-DEMO-TSHIRT",
		Title:       "Demo T-Shirt",
		Description: "Soft cotton tee for demo purposes",
		Category:    "apparel",
		Variants: []variantSeed{
			{Name: "M", Price: "19.99", MaxQty: 10},
			{Name: "L", Price: "19.99", MaxQty: 10},
		},
	},
	{
		SKU:         "SKU-DEMO-MUG",
		Title:       "Demo Mug",
		Description: "Ceramic mug with demo logo",
		Category:    "kitchen",
		Variants: []variantSeed{
			{Name: "Standard", Price: "12.99", Discount: "1.00"},
		},
	},
}

// Result reports the ids written by Apply.
type Result struct {
	CustomerID int64
	Products   int
}

// Apply inserts demo catalog data for each store plus one demo customer.
// It is idempotent: every write is an upsert.
func Apply(ctx context.Context, deps Deps, stores []domain.Store) (Result, error) {
	var res Result
	for _, store := range stores {
		for _, ps := range demoProducts {
			if err := upsertProduct(ctx, deps, store, ps); err != nil {
				return res, fmt.Errorf("upsert product %s for store %s: %w", ps.SKU, store.ID, err)
			}
			res.Products++
		}
	}

	c, err := deps.Customers.Upsert(ctx, domain.Customer{
		FirstName: "Demo",
		LastName:  "Buyer",
		Email:     "buyer@example.com",
	})
	if err != nil {
		return res, fmt.Errorf("upsert customer: %w", err)
	}
	res.CustomerID = c.ID
	return res, nil
}

func upsertProduct(ctx context.Context, deps Deps, store domain.Store, ps productSeed) error {
	sku := ps.SKU
	if store.ID != "" {
		sku = store.ID + "-" + ps.SKU
	}
	p, err := deps.Products.Upsert(ctx, domain.Product{
		StoreID:     store.ID,
		Title:       ps.Title,
		SKU:         sku,
		Category:    ps.Category,
		Description: ps.Description,
		Active:      true,
	})
	if err != nil {
		return err
	}
	for pos, vs := range ps.Variants {
		attr, err := deps.Products.UpsertAttribute(ctx, domain.ProductAttribute{
			ProductID:           p.ID,
			Name:                vs.Name,
			Position:            pos,
			AlwaysInStock:       true,
			DefaultCartQuantity: 1,
			MaxCartQuantity:     vs.MaxQty,
			Shippable:           true,
		})
		if err != nil {
			return err
		}
		discount := decimal.Zero
		if vs.Discount != "" {
			discount = decimal.RequireFromString(vs.Discount)
		}
		price := domain.NewPrice(attr.ID, decimal.RequireFromString(vs.Price), store.Currency, discount, &store)
		if err := deps.Prices.Save(ctx, price); err != nil {
			return err
		}
	}
	return nil
}
