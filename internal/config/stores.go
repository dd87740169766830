package config

import (
	"fmt"
	"os"
	"strings"

	"commerce-backoffice/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type storeFile struct {
	Stores []storeEntry `yaml:"stores"`
}

type storeEntry struct {
	ID                  string             `yaml:"id"`
	Name                string             `yaml:"name"`
	Currency            string             `yaml:"currency"`
	Country             string             `yaml:"country"`
	Description         string             `yaml:"description"`
	ContactEmail        string             `yaml:"contact_email"`
	Phone               string             `yaml:"phone"`
	Address             string             `yaml:"address"`
	Logo                string             `yaml:"logo"`
	TaxIncluded         bool               `yaml:"tax_included"`
	ShippingIncluded    bool               `yaml:"shipping_included"`
	DefaultShippingZone string             `yaml:"default_shipping_zone"`
	ShippingFees        map[string]float64 `yaml:"shipping_fees"`
	Taxes               []taxEntry         `yaml:"taxes"`
}

type taxEntry struct {
	Name string  `yaml:"name"`
	Rate float64 `yaml:"rate"`
}

// LoadStores reads the store list from path. An empty path yields a single
// "default" store trading in baseCurrency.
func LoadStores(path, baseCurrency string) ([]domain.Store, error) {
	if path == "" {
		return []domain.Store{{ID: "default", Name: "Default", Currency: baseCurrency}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stores file: %w", err)
	}
	return ParseStores(raw, baseCurrency)
}

// ParseStores decodes a YAML store list, keeping file order.
func ParseStores(raw []byte, baseCurrency string) ([]domain.Store, error) {
	var f storeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse stores file: %w", err)
	}
	if len(f.Stores) == 0 {
		return nil, fmt.Errorf("stores file: %w: no stores defined", domain.ErrConfiguration)
	}
	seen := make(map[string]struct{}, len(f.Stores))
	out := make([]domain.Store, 0, len(f.Stores))
	for _, e := range f.Stores {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return nil, fmt.Errorf("stores file: %w: store without id", domain.ErrConfiguration)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("stores file: duplicate store id %q", id)
		}
		seen[id] = struct{}{}
		currency := strings.ToUpper(e.Currency)
		if currency == "" {
			currency = baseCurrency
		}
		s := domain.Store{
			ID:                  id,
			Name:                e.Name,
			Currency:            currency,
			Country:             e.Country,
			Description:         e.Description,
			ContactEmail:        e.ContactEmail,
			Phone:               e.Phone,
			Address:             e.Address,
			Logo:                e.Logo,
			TaxIncluded:         e.TaxIncluded,
			ShippingIncluded:    e.ShippingIncluded,
			DefaultShippingZone: e.DefaultShippingZone,
			ShippingFees:        make(map[string]decimal.Decimal, len(e.ShippingFees)),
		}
		for zone, fee := range e.ShippingFees {
			s.ShippingFees[zone] = decimal.NewFromFloat(fee)
		}
		for _, t := range e.Taxes {
			s.Taxes = append(s.Taxes, domain.StoreTax{Name: t.Name, Rate: decimal.NewFromFloat(t.Rate)})
		}
		out = append(out, s)
	}
	return out, nil
}
