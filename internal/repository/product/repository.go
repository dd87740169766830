package product

import (
	"context"

	"commerce-backoffice/internal/domain"
)

type Repository interface {
	List(ctx context.Context, storeID string) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetAttribute(ctx context.Context, id int64) (*domain.ProductAttribute, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpsertAttribute(ctx context.Context, a domain.ProductAttribute) (*domain.ProductAttribute, error)
}
