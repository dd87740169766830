package order

import (
	"context"

	"commerce-backoffice/internal/domain"
)

// CommitInput is everything persisted by one checkout commit.
type CommitInput struct {
	Orders    []domain.Order
	Billing   *domain.Address
	Shipping  *domain.Address
	CartID    int64
	StagingID int64
}

type Repository interface {
	Commit(ctx context.Context, in CommitInput) ([]domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, storeID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, f domain.OrderSummaryFilter) ([]domain.OrderSummaryRow, error)
}
