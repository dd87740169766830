// Package pricing builds variant prices with store taxes applied.
package pricing

import (
	"context"

	"commerce-backoffice/internal/domain"
	pricerepo "commerce-backoffice/internal/repository/price"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type priceRepo interface {
	Get(ctx context.Context, attributeID int64) (*pricerepo.Record, error)
	Save(ctx context.Context, rec pricerepo.Record) error
	Delete(ctx context.Context, attributeID int64) error
}

type storeLookup interface {
	Get(id string) (*domain.Store, bool)
}

type rateSource interface {
	Rate(ctx context.Context, target, base string) (decimal.Decimal, error)
}

type Service struct {
	repo   priceRepo
	stores storeLookup
	rates  rateSource
	logger zerolog.Logger
}

func New(repo priceRepo, stores storeLookup, rates rateSource, logger zerolog.Logger) *Service {
	return &Service{repo: repo, stores: stores, rates: rates, logger: logger}
}

// Build constructs a price with the taxes of storeID applied. Unknown
// stores contribute no taxes.
func (s *Service) Build(attributeID int64, base decimal.Decimal, currency string, discount decimal.Decimal, storeID string) *domain.Price {
	store, _ := s.stores.Get(storeID)
	p := domain.NewPrice(attributeID, base, currency, discount, store)
	p.StoreID = storeID
	return p
}

// Load reads the stored price of an attribute and reapplies the store taxes.
func (s *Service) Load(ctx context.Context, attributeID int64, storeID string) (*domain.Price, error) {
	rec, err := s.repo.Get(ctx, attributeID)
	if err != nil {
		return nil, err
	}
	return s.Build(rec.AttributeID, rec.BasePrice, rec.Currency, rec.Discount, storeID), nil
}

// Save persists base, discount and currency. Taxes are not stored.
func (s *Service) Save(ctx context.Context, p *domain.Price) error {
	if p.BasePrice.IsNegative() || p.Discount.IsNegative() {
		return domain.Invalidf("price amounts must not be negative")
	}
	if !domain.ValidCurrencyCode(p.Currency) {
		return domain.ErrInvalidCurrencyCode
	}
	return s.repo.Save(ctx, pricerepo.FromPrice(*p))
}

func (s *Service) Delete(ctx context.Context, attributeID int64) error {
	return s.repo.Delete(ctx, attributeID)
}

// PriceIn converts the base price into target. Any rate failure returns the
// unconverted base.
func (s *Service) PriceIn(ctx context.Context, p *domain.Price, target string) decimal.Decimal {
	rate, err := s.rates.Rate(ctx, target, p.Currency)
	if err != nil {
		s.logger.Warn().Err(err).Str("target", target).Int64("attribute_id", p.AttributeID).Msg("pricing: conversion unavailable")
		return p.BasePrice
	}
	return domain.RoundMoney(p.BasePrice.Mul(rate))
}
