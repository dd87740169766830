package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")

	ErrCartNotFound        = errors.New("cart not found")
	ErrEmptyCart           = errors.New("cart has no items")
	ErrStagingNotFound     = errors.New("staging record not found")
	ErrInvalidCurrencyCode = errors.New("invalid currency code")
	ErrGatewayNotFound     = errors.New("payment gateway not found")
	ErrGatewayDisabled     = errors.New("payment gateway disabled")

	// ErrOrderFailed marks a checkout commit that could not be persisted.
	// It is never retried.
	ErrOrderFailed = errors.New("order failed")

	// ErrConfiguration is returned when a collaborator is constructed
	// without the settings it needs.
	ErrConfiguration = errors.New("missing configuration")

	// ErrInvalidInput marks caller input rejected by validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Invalidf returns an ErrInvalidInput carrying a formatted reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
