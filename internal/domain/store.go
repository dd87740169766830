package domain

import "github.com/shopspring/decimal"

// Store is sourced from configuration and never persisted.
type Store struct {
	ID                  string
	Name                string
	Currency            string
	Country             string
	Description         string
	ContactEmail        string
	Phone               string
	Address             string
	Logo                string
	TaxIncluded         bool
	ShippingIncluded    bool
	DefaultShippingZone string
	ShippingFees        map[string]decimal.Decimal
	Taxes               []StoreTax
}

type StoreTax struct {
	Name string
	Rate decimal.Decimal
}
