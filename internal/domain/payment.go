package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"orderId"`
	Method        string          `json:"paymentMethod"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// PaymentDetail holds masked card data of a processed payment.
type PaymentDetail struct {
	ID             int64  `json:"id"`
	PaymentID      int64  `json:"paymentId"`
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardType       string `json:"cardType"`
}

// PayLater records a deferred payment promise for an order.
type PayLater struct {
	ID           int64     `json:"id"`
	OrderID      int64     `json:"orderId"`
	ExpectedDate time.Time `json:"expectedDate"`
	Agree        bool      `json:"agree"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"createdAt"`
}
