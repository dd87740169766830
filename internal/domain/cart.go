package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Owner identifies who a cart belongs to: a registered user or a guest session.
type Owner struct {
	UserID    *int64
	SessionID *string
}

// IsZero reports whether neither a user nor a session is set.
func (o Owner) IsZero() bool {
	return o.UserID == nil && (o.SessionID == nil || *o.SessionID == "")
}

type Cart struct {
	ID        int64           `json:"id"`
	UserID    *int64          `json:"userId,omitempty"`
	SessionID *string         `json:"sessionId,omitempty"`
	Currency  string          `json:"currency"`
	Total     decimal.Decimal `json:"total"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Note      json.RawMessage `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Items     []CartItem      `json:"items"`
}

type CartItem struct {
	ID          int64           `json:"id"`
	CartID      int64           `json:"cartId"`
	ProductID   int64           `json:"productId"`
	AttributeID *int64          `json:"attributeId,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// LineTotal is quantity times unit price.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartFilter selects a cart. Set fields are combined with AND.
type CartFilter struct {
	ID        *int64
	UserID    *int64
	SessionID *string
}

// Empty reports whether no selector is set.
func (f CartFilter) Empty() bool {
	return f.ID == nil && f.UserID == nil && f.SessionID == nil
}

// ComputeSubtotal sums quantity*unitPrice over all items.
func (c *Cart) ComputeSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}
