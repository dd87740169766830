package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPlaced     OrderStatus = "placed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPlaced, OrderProcessing, OrderShipped, OrderCompleted, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

type Order struct {
	ID            int64           `json:"id"`
	StoreID       string          `json:"storeId"`
	UserID        *int64          `json:"userId,omitempty"`
	Status        OrderStatus     `json:"status"`
	Currency      string          `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxTotal      decimal.Decimal `json:"taxTotal"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	ShippingTotal decimal.Decimal `json:"shippingTotal"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Items         []OrderItem     `json:"items"`
	Taxes         []OrderTax      `json:"taxes"`
	Billing       *Address        `json:"billingAddress,omitempty"`
	Shipping      *Address        `json:"shippingAddress,omitempty"`
}

// OrderItem snapshots name and price at order creation.
type OrderItem struct {
	ID          int64           `json:"id,omitempty"`
	OrderID     int64           `json:"orderId,omitempty"`
	ProductID   int64           `json:"productId"`
	AttributeID *int64          `json:"attributeId,omitempty"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

type OrderTax struct {
	ID      int64           `json:"id,omitempty"`
	OrderID int64           `json:"orderId,omitempty"`
	Name    string          `json:"name"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  decimal.Decimal `json:"amount"`
}

type Address struct {
	FullName     string `json:"fullName" binding:"required"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	AddressLine1 string `json:"addressLine1" binding:"required"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country" binding:"required"`
}

// OrderSummaryRow aggregates orders of one day.
type OrderSummaryRow struct {
	Day        time.Time       `json:"day"`
	Count      int             `json:"count"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// OrderSummaryFilter narrows the summary to a year, optionally a month and status.
type OrderSummaryFilter struct {
	Year   int
	Month  int
	Status OrderStatus
}
