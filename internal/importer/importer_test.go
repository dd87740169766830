package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"commerce-backoffice/internal/domain"
	"github.com/rs/zerolog"
)

type stubProductRepo struct {
	items []domain.Product
	attrs []domain.ProductAttribute
}

func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = int64(len(s.items) + 1)
	s.items = append(s.items, p)
	return &p, nil
}

func (s *stubProductRepo) UpsertAttribute(_ context.Context, a domain.ProductAttribute) (*domain.ProductAttribute, error) {
	a.ID = int64(100 + len(s.attrs))
	s.attrs = append(s.attrs, a)
	return &a, nil
}

type stubPriceRepo struct {
	saved []domain.Price
	err   error
}

func (s *stubPriceRepo) Save(_ context.Context, p *domain.Price) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, *p)
	return nil
}

const catalogCSV = `store,sku,title,description,category,images,active,variant,max_cart_quantity,stock_level,base_price,discount,currency
eu,MUG-1,Mug,Ceramic mug,kitchen,https://example.com/mug.jpg,true,Small,5,10,12.50,1.00,eur
,,,,,https://example.com/mug-2.jpg,,Large,,,15,,EUR
,TEE-1,Tee,,apparel,,false,One size,,,20,,usd
`

func TestCSVImporter_Run(t *testing.T) {
	products := &stubProductRepo{}
	prices := &stubPriceRepo{}
	imp := NewCSVImporter(strings.NewReader(catalogCSV), products, prices, "default", zerolog.Nop())

	stats, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if stats != (Stats{Products: 2, Attributes: 3, Prices: 3}) {
		t.Fatalf("unexpected stats %+v", stats)
	}

	mug := products.items[0]
	if mug.StoreID != "eu" || mug.SKU != "MUG-1" || !mug.Active || len(mug.Images) != 2 {
		t.Fatalf("unexpected first product %+v", mug)
	}
	tee := products.items[1]
	if tee.StoreID != "default" || tee.Active {
		t.Fatalf("expected default store and inactive tee, got %+v", tee)
	}

	if products.attrs[0].Name != "Small" || products.attrs[0].MaxCartQuantity != 5 || products.attrs[0].StockLevel != 10 || products.attrs[0].ProductID != mug.ID {
		t.Fatalf("unexpected first variant %+v", products.attrs[0])
	}
	if products.attrs[1].Position != 1 {
		t.Fatalf("expected second variant at position 1, got %d", products.attrs[1].Position)
	}

	first := prices.saved[0]
	if first.AttributeID != 100 || first.Currency != "EUR" || first.BasePrice.String() != "12.5" || first.Discount.String() != "1" || first.StoreID != "eu" {
		t.Fatalf("unexpected first price %+v", first)
	}
	if prices.saved[2].Currency != "USD" {
		t.Fatalf("expected currency to be upper-cased, got %s", prices.saved[2].Currency)
	}
}

func TestCSVImporter_Errors(t *testing.T) {
	cases := map[string]string{
		"missing sku column": "title,variant\nMug,Small\n",
		"orphan variant":     "sku,title,variant\n,,Small\n",
		"bad price":          "sku,title,variant,base_price,currency\nA,Mug,Small,abc,USD\n",
		"bad currency":       "sku,title,variant,base_price,currency\nA,Mug,Small,1,US\n",
		"missing title":      "sku,title,variant\nA,,Small\n",
	}
	for name, data := range cases {
		imp := NewCSVImporter(strings.NewReader(data), &stubProductRepo{}, &stubPriceRepo{}, "default", zerolog.Nop())
		if _, err := imp.Run(context.Background()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestCSVImporter_PriceFailure(t *testing.T) {
	prices := &stubPriceRepo{err: errors.New("boom")}
	imp := NewCSVImporter(strings.NewReader(catalogCSV), &stubProductRepo{}, prices, "default", zerolog.Nop())
	stats, err := imp.Run(context.Background())
	if err == nil || stats.Prices != 0 || stats.Products != 1 {
		t.Fatalf("expected failure on first price, got %+v %v", stats, err)
	}
}
