package pricing

import (
	"context"
	"errors"
	"testing"

	"commerce-backoffice/internal/domain"
	pricerepo "commerce-backoffice/internal/repository/price"
	"commerce-backoffice/internal/storeconfig"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type stubRepo struct {
	rec     *pricerepo.Record
	getErr  error
	lastRec pricerepo.Record
}

func (s *stubRepo) Get(_ context.Context, _ int64) (*pricerepo.Record, error) { return s.rec, s.getErr }
func (s *stubRepo) Save(_ context.Context, rec pricerepo.Record) error {
	s.lastRec = rec
	return nil
}
func (s *stubRepo) Delete(_ context.Context, _ int64) error { return nil }

type stubRates struct {
	rate     decimal.Decimal
	err      error
	lastBase string
}

func (s *stubRates) Rate(_ context.Context, _, base string) (decimal.Decimal, error) {
	s.lastBase = base
	return s.rate, s.err
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func stores() *storeconfig.Registry {
	return storeconfig.New([]domain.Store{{ID: "a", Taxes: []domain.StoreTax{{Name: "VAT", Rate: d("15")}}}})
}

func TestLoad_ReappliesStoreTaxes(t *testing.T) {
	repo := &stubRepo{rec: &pricerepo.Record{AttributeID: 3, BasePrice: d("100"), Discount: d("10"), Currency: "USD"}}
	svc := New(repo, stores(), &stubRates{}, zerolog.Nop())

	p, err := svc.Load(context.Background(), 3, "a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.Total.Equal(d("105")) || len(p.Taxes) != 1 {
		t.Fatalf("unexpected price %+v", p)
	}

	noTax, _ := svc.Load(context.Background(), 3, "unknown")
	if !noTax.Total.Equal(d("90")) {
		t.Fatalf("expected 90 without taxes, got %s", noTax.Total)
	}
}

func TestLoad_NotFound(t *testing.T) {
	svc := New(&stubRepo{getErr: domain.ErrNotFound}, stores(), &stubRates{}, zerolog.Nop())
	if _, err := svc.Load(context.Background(), 1, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSave_PersistsWithoutTaxes(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, stores(), &stubRates{}, zerolog.Nop())
	p := svc.Build(4, d("20"), "EUR", d("1"), "a")

	if err := svc.Save(context.Background(), p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if repo.lastRec.AttributeID != 4 || !repo.lastRec.BasePrice.Equal(d("20")) || repo.lastRec.Currency != "EUR" {
		t.Fatalf("unexpected record %+v", repo.lastRec)
	}

	p.Currency = "EURO"
	if err := svc.Save(context.Background(), p); !errors.Is(err, domain.ErrInvalidCurrencyCode) {
		t.Fatalf("expected invalid currency, got %v", err)
	}
}

func TestPriceIn(t *testing.T) {
	rates := &stubRates{rate: d("0.913")}
	svc := New(&stubRepo{}, stores(), rates, zerolog.Nop())
	p := svc.Build(1, d("10"), "USD", decimal.Zero, "a")

	if got := svc.PriceIn(context.Background(), p, "EUR"); !got.Equal(d("9.13")) {
		t.Fatalf("expected 9.13, got %s", got)
	}
	if rates.lastBase != "USD" {
		t.Fatalf("expected conversion from own currency, got %s", rates.lastBase)
	}

	rates.err = domain.ErrInvalidCurrencyCode
	if got := svc.PriceIn(context.Background(), p, "EURO"); !got.Equal(d("10")) {
		t.Fatalf("expected unconverted base, got %s", got)
	}
}
