// Package staging stores in-flight JSON payloads under numeric handles.
package staging

import (
	"context"
	"encoding/json"

	"commerce-backoffice/internal/domain"
)

type Repository interface {
	Put(ctx context.Context, payload json.RawMessage) (int64, error)
	Get(ctx context.Context, id int64) (*domain.StagingRecord, error)
	Replace(ctx context.Context, id int64, payload json.RawMessage) error
	Remove(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}
