// Package notify turns order lifecycle events into emails and broker
// messages.
package notify

import (
	"commerce-backoffice/internal/domain"
)

// Kind names a lifecycle event. Kinds are the keys of the formatter table.
type Kind string

const (
	OrderConfirmation Kind = "order_confirmation"
	StatusChange      Kind = "status_change"
	Invoice           Kind = "invoice"
	PaymentReceived   Kind = "payment_received"
	CartReminder      Kind = "cart_reminder"
)

// Event carries everything a formatter may need. Only the fields relevant
// to the kind are set.
type Event struct {
	Kind     Kind
	Order    *domain.Order
	Customer *domain.Customer
	Store    *domain.Store
	Payment  *domain.Payment
	Cart     *domain.Cart
	To       Recipient
	Bcc      []string
}

type Recipient struct {
	Email string
	Name  string
}

// RecipientOf picks the customer when known, otherwise the billing contact.
func RecipientOf(c *domain.Customer, o *domain.Order) Recipient {
	if c != nil && c.Email != "" {
		return Recipient{Email: c.Email, Name: c.FullName()}
	}
	if o != nil && o.Billing != nil {
		return Recipient{Email: o.Billing.Email, Name: o.Billing.FullName}
	}
	return Recipient{}
}
