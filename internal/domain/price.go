package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// TaxLine is one percentage tax applied to a price.
type TaxLine struct {
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// Price belongs to exactly one product attribute. Taxes are derived from
// the owning store and are not persisted.
type Price struct {
	AttributeID int64           `json:"attributeId"`
	StoreID     string          `json:"storeId,omitempty"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Discount    decimal.Decimal `json:"discount"`
	Currency    string          `json:"currency"`
	Taxes       []TaxLine       `json:"taxes"`
	Total       decimal.Decimal `json:"total"`
}

// NewPrice builds a price and applies every tax configured on store.
func NewPrice(attributeID int64, base decimal.Decimal, currency string, discount decimal.Decimal, store *Store) *Price {
	p := &Price{
		AttributeID: attributeID,
		BasePrice:   base,
		Discount:    discount,
		Currency:    currency,
		Taxes:       []TaxLine{},
	}
	if store != nil {
		p.StoreID = store.ID
		for _, t := range store.Taxes {
			p.Taxes = append(p.Taxes, TaxLine{Name: t.Name, Rate: t.Rate})
		}
	}
	p.Recalculate()
	return p
}

// AddTax appends a tax line. Names are not de-duplicated.
func (p *Price) AddTax(name string, rate decimal.Decimal) {
	p.Taxes = append(p.Taxes, TaxLine{Name: name, Rate: rate})
	p.Recalculate()
}

func (p *Price) SetBasePrice(base decimal.Decimal) {
	p.BasePrice = base
	p.Recalculate()
}

func (p *Price) SetDiscount(discount decimal.Decimal) {
	p.Discount = discount
	p.Recalculate()
}

// Recalculate refreshes every tax amount and the total from the base price.
func (p *Price) Recalculate() {
	for i := range p.Taxes {
		p.Taxes[i].Amount = RoundMoney(p.BasePrice.Mul(p.Taxes[i].Rate).Div(hundred))
	}
	p.Total = RoundMoney(p.BasePrice.Sub(p.Discount).Add(p.TaxSum()))
}

// TaxSum is the sum of all tax amounts.
func (p *Price) TaxSum() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range p.Taxes {
		sum = sum.Add(t.Amount)
	}
	return sum
}
