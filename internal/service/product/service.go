// Package product serves the storefront catalog with prices in the
// shopper's currency.
package product

import (
	"context"
	"errors"

	"commerce-backoffice/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type productRepo interface {
	List(ctx context.Context, storeID string) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type pricer interface {
	Load(ctx context.Context, attributeID int64, storeID string) (*domain.Price, error)
	PriceIn(ctx context.Context, p *domain.Price, target string) decimal.Decimal
}

// Listing is a product with every variant priced. DisplayPrices holds the
// converted base price per attribute id when Currency is set.
type Listing struct {
	domain.Product
	Currency      string                    `json:"currency,omitempty"`
	DisplayPrices map[int64]decimal.Decimal `json:"displayPrices,omitempty"`
}

type Service struct {
	repo   productRepo
	prices pricer
	logger zerolog.Logger
}

func New(repo productRepo, prices pricer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, prices: prices, logger: logger}
}

// List returns the products of storeID. Inactive products are left out
// unless includeInactive is set.
func (s *Service) List(ctx context.Context, storeID string, includeInactive bool) ([]domain.Product, error) {
	all, err := s.repo.List(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return all, nil
	}
	out := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get loads a product with its variant prices. An empty currency skips
// conversion. Variants without a stored price are returned unpriced.
func (s *Service) Get(ctx context.Context, id int64, currency string, includeInactive bool) (*Listing, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active && !includeInactive {
		return nil, domain.ErrNotFound
	}
	if currency != "" && !domain.ValidCurrencyCode(currency) {
		return nil, domain.ErrInvalidCurrencyCode
	}

	out := &Listing{Product: *p, Currency: currency}
	if currency != "" {
		out.DisplayPrices = make(map[int64]decimal.Decimal, len(p.Attributes))
	}
	for i := range out.Attributes {
		attr := &out.Attributes[i]
		price, err := s.prices.Load(ctx, attr.ID, p.StoreID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).Int64("attribute_id", attr.ID).Msg("product: load price")
			return nil, err
		}
		attr.Price = price
		if currency != "" {
			out.DisplayPrices[attr.ID] = s.prices.PriceIn(ctx, price, currency)
		}
	}
	return out, nil
}
