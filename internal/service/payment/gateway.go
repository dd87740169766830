// Package payment implements the payment gateways and the payment read
// model.
package payment

import (
	"context"
	"fmt"
	"strings"

	"commerce-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

// Data is the flat key/value payload posted to a gateway.
type Data map[string]string

func (d Data) Get(key string) string { return strings.TrimSpace(d[key]) }

// missing returns one "Missing required data" message per blank key.
func (d Data) missing(keys []string) []string {
	var errs []string
	for _, k := range keys {
		if d.Get(k) == "" {
			errs = append(errs, "Missing required data: "+k)
		}
	}
	return errs
}

// Outcome reports a gateway run. Validation failures and declines are
// listed in Errors; Success follows the gateway's own rule.
type Outcome struct {
	Success  bool             `json:"success"`
	Errors   []string         `json:"errors,omitempty"`
	Orders   []domain.Order   `json:"orders,omitempty"`
	Payments []domain.Payment `json:"payments,omitempty"`
}

func (o *Outcome) fail(msg string) *Outcome {
	o.Errors = append(o.Errors, msg)
	return o
}

// FormOptions is the data a payment form is rendered with.
type FormOptions struct {
	Action   string
	CartID   int64
	Currency string
	Amount   decimal.Decimal
	Errors   []string
}

// Gateway is one way of paying for a checkout.
type Gateway interface {
	ID() string
	Name() string
	Description() string
	Logos() []string
	Enabled() bool
	PaymentForm(opts FormOptions) (string, error)
	// ProcessPayment returns a Go error only when orders could not be
	// persisted after the payment step.
	ProcessPayment(ctx context.Context, data Data) (*Outcome, error)
}

// Factory builds a gateway on lookup.
type Factory func() Gateway

// Registry maps gateway ids to factories in registration order.
type Registry struct {
	order     []string
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

func (r *Registry) Register(id string, f Factory) {
	if _, ok := r.factories[id]; !ok {
		r.order = append(r.order, id)
	}
	r.factories[id] = f
}

// Get returns the gateway with id. Disabled gateways are returned together
// with domain.ErrGatewayDisabled.
func (r *Registry) Get(id string) (Gateway, error) {
	f, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayNotFound, id)
	}
	g := f()
	if !g.Enabled() {
		return g, fmt.Errorf("%w: %s", domain.ErrGatewayDisabled, id)
	}
	return g, nil
}

// Enabled lists the enabled gateways in registration order.
func (r *Registry) Enabled() []Gateway {
	var out []Gateway
	for _, id := range r.order {
		if g := r.factories[id](); g.Enabled() {
			out = append(out, g)
		}
	}
	return out
}

type renderer interface {
	Render(name string, data any) (string, error)
}
