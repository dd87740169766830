package payment

import (
	"context"

	"commerce-backoffice/internal/domain"
)

// Query narrows payment listings. Empty fields are ignored.
type Query struct {
	OrderID  int64
	Currency string
	Method   string
	StoreID  string
}

type Repository interface {
	Create(ctx context.Context, p domain.Payment) (*domain.Payment, error)
	Update(ctx context.Context, p domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByTransaction(ctx context.Context, transactionID string) (*domain.Payment, error)
	LatestForOrder(ctx context.Context, orderID int64) (*domain.Payment, error)
	List(ctx context.Context, q Query) ([]domain.Payment, error)
	AddDetail(ctx context.Context, d domain.PaymentDetail) (*domain.PaymentDetail, error)
	GetDetail(ctx context.Context, paymentID int64) (*domain.PaymentDetail, error)
	AddPayLater(ctx context.Context, p domain.PayLater) (*domain.PayLater, error)
	GetPayLater(ctx context.Context, orderID int64) (*domain.PayLater, error)
}
