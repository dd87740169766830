package conversion

import (
	"context"

	"commerce-backoffice/internal/domain"
)

type Repository interface {
	Get(ctx context.Context, base string) (*domain.RateTable, error)
	Replace(ctx context.Context, table domain.RateTable) error
	List(ctx context.Context) ([]domain.RateTable, error)
}
