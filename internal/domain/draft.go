package domain

import "github.com/shopspring/decimal"

// CheckoutDraft is the staged shape of a checkout between begin and commit.
type CheckoutDraft struct {
	Stores   map[string]*StoreDraft `json:"stores"`
	Cart     DraftCart              `json:"cart"`
	Billing  *Address               `json:"billing_address,omitempty"`
	Shipping *Address               `json:"shipping_address,omitempty"`
}

type DraftCart struct {
	ID       int64   `json:"id"`
	UserID   *int64  `json:"user_id,omitempty"`
	Currency string  `json:"currency"`
	Note     *string `json:"note,omitempty"`
}

// StoreDraft accumulates the lines of one store. Taxes are unique by name.
type StoreDraft struct {
	StoreID       string          `json:"store_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	Taxes         []OrderTax      `json:"taxes"`
	Items         []OrderItem     `json:"order_items"`
}

// PutTax stores t, replacing an earlier tax of the same name in place.
func (d *StoreDraft) PutTax(t OrderTax) {
	for i := range d.Taxes {
		if d.Taxes[i].Name == t.Name {
			d.Taxes[i] = t
			return
		}
	}
	d.Taxes = append(d.Taxes, t)
}

// SumTaxes recomputes TaxTotal from the current tax lines.
func (d *StoreDraft) SumTaxes() {
	sum := decimal.Zero
	for _, t := range d.Taxes {
		sum = sum.Add(t.Amount)
	}
	d.TaxTotal = sum
}

// ToOrder converts the draft into an unsaved placed order.
func (d *StoreDraft) ToOrder(cart DraftCart) Order {
	return Order{
		StoreID:       d.StoreID,
		UserID:        cart.UserID,
		Status:        OrderPlaced,
		Currency:      cart.Currency,
		Subtotal:      RoundMoney(d.Subtotal),
		TaxTotal:      RoundMoney(d.TaxTotal),
		DiscountTotal: RoundMoney(d.DiscountTotal),
		ShippingTotal: decimal.Zero,
		GrandTotal:    RoundMoney(d.Subtotal.Sub(d.DiscountTotal).Add(d.TaxTotal)),
		Items:         d.Items,
		Taxes:         d.Taxes,
	}
}

// Quote is the amount due for a checkout, in the cart currency.
type Quote struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
}
