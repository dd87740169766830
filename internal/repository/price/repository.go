package price

import (
	"context"

	"commerce-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

// Record is the persisted part of a price. Taxes are never stored.
type Record struct {
	AttributeID int64
	BasePrice   decimal.Decimal
	Discount    decimal.Decimal
	Currency    string
}

type Repository interface {
	Get(ctx context.Context, attributeID int64) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, attributeID int64) error
}

// FromPrice extracts the persisted fields of p.
func FromPrice(p domain.Price) Record {
	return Record{AttributeID: p.AttributeID, BasePrice: p.BasePrice, Discount: p.Discount, Currency: p.Currency}
}
