package cart

import (
	"context"
	"encoding/json"

	"commerce-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateCartInput struct {
	UserID    *int64
	SessionID *string
	Currency  string
}

type AddItemInput struct {
	CartID      int64
	ProductID   int64
	AttributeID *int64
	Quantity    int
	UnitPrice   decimal.Decimal
}

type Repository interface {
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	Find(ctx context.Context, filter domain.CartFilter) (*domain.Cart, error)
	List(ctx context.Context) ([]domain.Cart, error)
	ListNonEmpty(ctx context.Context) ([]domain.Cart, error)
	AddItem(ctx context.Context, in AddItemInput) error
	RemoveItem(ctx context.Context, itemID int64) (bool, error)
	RemoveItemsByProduct(ctx context.Context, productID int64) (int64, error)
	RemoveItemsByAttribute(ctx context.Context, attributeID int64) (int64, error)
	SetNote(ctx context.Context, cartID int64, note json.RawMessage) error
	ClearItems(ctx context.Context, cartID int64) error
	Delete(ctx context.Context, cartID int64) error
	DeleteEmpty(ctx context.Context) (int64, error)
}
