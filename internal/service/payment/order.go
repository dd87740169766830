package payment

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"commerce-backoffice/internal/domain"
)

type checkout interface {
	BeginCheckout(ctx context.Context, cartID int64) (int64, error)
	Quote(ctx context.Context, handle int64) (*domain.Quote, error)
	AppendBillingAddress(ctx context.Context, handle int64, addr domain.Address) error
	AppendShippingAddress(ctx context.Context, handle int64, addr domain.Address) error
	Commit(ctx context.Context, handle int64) ([]domain.Order, error)
}

var errAmountMismatch = errors.New("amount does not match the order total")

// stageOrder stages the checkout of the cart named in data and prices it.
// The posted amount and currency must equal the staged total.
func stageOrder(ctx context.Context, co checkout, data Data) (int64, *domain.Quote, error) {
	cartID, err := strconv.ParseInt(data.Get("cart_id"), 10, 64)
	if err != nil {
		return 0, nil, domain.ErrCartNotFound
	}
	handle, err := co.BeginCheckout(ctx, cartID)
	if err != nil {
		return 0, nil, err
	}
	quote, err := co.Quote(ctx, handle)
	if err != nil {
		return 0, nil, err
	}
	amount, err := domain.ParseMoney(data.Get("amount"))
	if err != nil || !amount.Equal(quote.Total) || !strings.EqualFold(data.Get("currency"), quote.Currency) {
		return handle, quote, errAmountMismatch
	}
	return handle, quote, nil
}

// placeOrder attaches both addresses to the staged draft and commits it.
func placeOrder(ctx context.Context, co checkout, handle int64, data Data) ([]domain.Order, error) {
	if err := co.AppendBillingAddress(ctx, handle, addressFrom(data, "billing_")); err != nil {
		return nil, err
	}
	if err := co.AppendShippingAddress(ctx, handle, addressFrom(data, "shipping_")); err != nil {
		return nil, err
	}
	return co.Commit(ctx, handle)
}

func addressFrom(data Data, prefix string) domain.Address {
	return domain.Address{
		FullName:     data.Get(prefix + "full_name"),
		Phone:        data.Get(prefix + "phone"),
		Email:        data.Get(prefix + "email"),
		AddressLine1: data.Get(prefix + "address_line1"),
		AddressLine2: data.Get(prefix + "address_line2"),
		City:         data.Get(prefix + "city"),
		State:        data.Get(prefix + "state"),
		PostalCode:   data.Get(prefix + "postal_code"),
		Country:      data.Get(prefix + "country"),
	}
}

var addressKeys = []string{
	"cart_id",
	"billing_full_name",
	"billing_email",
	"billing_address_line1",
	"billing_city",
	"billing_postal_code",
	"billing_country",
	"shipping_full_name",
	"shipping_address_line1",
	"shipping_city",
	"shipping_postal_code",
	"shipping_country",
	"amount",
	"currency",
}
