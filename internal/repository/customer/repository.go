package customer

import (
	"context"

	"commerce-backoffice/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Upsert(ctx context.Context, c domain.Customer) (*domain.Customer, error)
}
