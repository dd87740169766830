package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/notify"
	"commerce-backoffice/internal/processor"
	"commerce-backoffice/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const CreditCardID = "credit_card"

type cardProcessor interface {
	Charge(ctx context.Context, req processor.ChargeRequest) processor.Result
	Void(ctx context.Context, transactionID string) processor.Result
	TransactionDetail(ctx context.Context, transactionID string) (*processor.CardDetail, error)
	Supports(currency string) bool
	DefaultCurrency() string
}

type rateSource interface {
	Rate(ctx context.Context, target, base string) (decimal.Decimal, error)
}

type paymentStore interface {
	Create(ctx context.Context, p domain.Payment) (*domain.Payment, error)
	Update(ctx context.Context, p domain.Payment) error
	LatestForOrder(ctx context.Context, orderID int64) (*domain.Payment, error)
	AddDetail(ctx context.Context, d domain.PaymentDetail) (*domain.PaymentDetail, error)
	AddPayLater(ctx context.Context, p domain.PayLater) (*domain.PayLater, error)
}

type notifier interface {
	Notify(ctx context.Context, ev notify.Event) error
}

// GatewayDeps are shared by every gateway.
type GatewayDeps struct {
	Checkout checkout
	Payments paymentStore
	Rates    rateSource
	Views    renderer
	Notifier notifier
	Logger   zerolog.Logger
	Metrics  *telemetry.Metrics
}

func (d GatewayDeps) count(gateway, result string) {
	if d.Metrics != nil {
		d.Metrics.Payments.WithLabelValues(gateway, result).Inc()
	}
}

// CreditCard stages and prices the checkout, charges the staged total and
// commits the orders only after the processor approved the charge. A
// charge whose orders fail is voided.
type CreditCard struct {
	deps      GatewayDeps
	processor cardProcessor
	enabled   bool
}

// NewCreditCard is disabled when proc is nil.
func NewCreditCard(enabled bool, proc cardProcessor, deps GatewayDeps) *CreditCard {
	return &CreditCard{deps: deps, processor: proc, enabled: enabled && proc != nil}
}

var cardKeys = append(append([]string{}, addressKeys...), "card_name", "card_number", "exp_month", "exp_year", "cvv")

func (g *CreditCard) ID() string          { return CreditCardID }
func (g *CreditCard) Name() string        { return "Credit Card" }
func (g *CreditCard) Description() string { return "Supported card Visa, MasterCard, Discover, American Express, JCB" }
func (g *CreditCard) Enabled() bool       { return g.enabled }

func (g *CreditCard) Logos() []string {
	return []string{"/static/cards/visa.svg", "/static/cards/mastercard.svg", "/static/cards/amex.svg", "/static/cards/discover.svg", "/static/cards/jcb.svg"}
}

func (g *CreditCard) PaymentForm(opts FormOptions) (string, error) {
	return g.deps.Views.Render("card_form.html", opts)
}

func (g *CreditCard) ProcessPayment(ctx context.Context, data Data) (*Outcome, error) {
	out := &Outcome{}
	if out.Errors = data.missing(cardKeys); len(out.Errors) > 0 {
		g.deps.count(CreditCardID, "invalid")
		return out, nil
	}

	handle, quote, err := stageOrder(ctx, g.deps.Checkout, data)
	switch {
	case errors.Is(err, errAmountMismatch):
		g.deps.count(CreditCardID, "invalid")
		return out.fail("Amount does not match the order total"), nil
	case err != nil:
		g.deps.count(CreditCardID, "order_failed")
		return out.fail("Failed to create order"), err
	}
	if !quote.Total.IsPositive() {
		g.deps.count(CreditCardID, "invalid")
		return out.fail("Invalid amount"), nil
	}

	amount, currency, rate := quote.Total, quote.Currency, decimal.NewFromInt(1)
	if !g.processor.Supports(currency) {
		target := g.processor.DefaultCurrency()
		if r, err := g.deps.Rates.Rate(ctx, target, currency); err == nil {
			rate = r
		}
		amount = domain.RoundMoney(amount.Mul(rate))
		currency = target
	}

	res := g.processor.Charge(ctx, processor.ChargeRequest{
		Amount:   amount,
		Currency: currency,
		Card: processor.Card{
			Number:     data.Get("card_number"),
			ExpMonth:   twoDigits(data.Get("exp_month")),
			ExpYear:    data.Get("exp_year"),
			Code:       data.Get("cvv"),
			HolderName: data.Get("card_name"),
		},
		BillTo: billTo(data),
	})
	if !res.OK() {
		g.deps.count(CreditCardID, "declined")
		g.deps.Logger.Info().Str("code", res.Code).Str("message", res.Message).Msg("payment: card charge declined")
		return out.fail(declineMessage(res)), nil
	}

	orders, err := placeOrder(ctx, g.deps.Checkout, handle, data)
	if err != nil {
		g.deps.count(CreditCardID, "order_failed")
		g.deps.Logger.Error().Err(err).Str("transaction_id", res.TransactionID).Msg("payment: charged card but orders failed")
		g.void(ctx, res.TransactionID)
		return out.fail("Failed to create order"), err
	}
	out.Orders = orders

	detail, err := g.processor.TransactionDetail(ctx, res.TransactionID)
	if err != nil {
		g.deps.Logger.Warn().Err(err).Str("transaction_id", res.TransactionID).Msg("payment: transaction detail unavailable")
	}

	shares := splitCharge(orders, rate, amount)
	for i, o := range orders {
		p, err := g.recordPayment(ctx, o, res.TransactionID, shares[i], currency)
		if err != nil {
			g.deps.Logger.Error().Err(err).Int64("order_id", o.ID).Msg("payment: save card payment")
			continue
		}
		out.Payments = append(out.Payments, *p)

		if detail == nil {
			continue
		}
		_, err = g.deps.Payments.AddDetail(ctx, domain.PaymentDetail{
			PaymentID:      p.ID,
			CardNumber:     detail.CardNumber,
			ExpirationDate: detail.ExpirationDate,
			CardType:       detail.CardType,
		})
		if err != nil {
			g.deps.Logger.Error().Err(err).Int64("payment_id", p.ID).Msg("payment: save card detail")
			continue
		}
		// Success is decided by the first order's detail row.
		if i == 0 {
			out.Success = true
		}
		g.notifyReceived(ctx, o, p)
	}

	if out.Success {
		g.deps.count(CreditCardID, "paid")
	} else {
		g.deps.count(CreditCardID, "incomplete")
	}
	return out, nil
}

// void reverses a charge whose orders could not be placed.
func (g *CreditCard) void(ctx context.Context, transactionID string) {
	res := g.processor.Void(ctx, transactionID)
	if !res.OK() {
		g.deps.count(CreditCardID, "void_failed")
		g.deps.Logger.Error().Str("transaction_id", transactionID).Str("code", res.Code).Str("message", res.Message).Msg("payment: void after failed order")
		return
	}
	g.deps.Logger.Info().Str("transaction_id", transactionID).Msg("payment: charge voided")
}

// splitCharge spreads the charged amount over the orders in the charged
// currency. The last order takes the rounding remainder.
func splitCharge(orders []domain.Order, rate, charged decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(orders))
	rest := charged
	for i, o := range orders {
		if i == len(orders)-1 {
			shares[i] = rest
			break
		}
		shares[i] = domain.RoundMoney(o.GrandTotal.Mul(rate))
		rest = rest.Sub(shares[i])
	}
	return shares
}

// recordPayment completes the order's latest payment or creates a paid one
// for the charged share.
func (g *CreditCard) recordPayment(ctx context.Context, o domain.Order, transactionID string, amount decimal.Decimal, currency string) (*domain.Payment, error) {
	existing, err := g.deps.Payments.LatestForOrder(ctx, o.ID)
	switch {
	case err == nil:
		existing.Status = domain.PaymentCompleted
		existing.TransactionID = transactionID
		existing.Method = CreditCardID
		existing.Amount = amount
		existing.Currency = currency
		if err := g.deps.Payments.Update(ctx, *existing); err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, domain.ErrNotFound):
		return g.deps.Payments.Create(ctx, domain.Payment{
			OrderID:       o.ID,
			Method:        CreditCardID,
			TransactionID: transactionID,
			Amount:        amount,
			Currency:      currency,
			Status:        domain.PaymentPaid,
		})
	default:
		return nil, err
	}
}

func (g *CreditCard) notifyReceived(ctx context.Context, o domain.Order, p *domain.Payment) {
	if g.deps.Notifier == nil {
		return
	}
	err := g.deps.Notifier.Notify(ctx, notify.Event{
		Kind:    notify.PaymentReceived,
		Order:   &o,
		Payment: p,
		To:      notify.RecipientOf(nil, &o),
	})
	if err != nil {
		g.deps.Logger.Warn().Err(err).Int64("order_id", o.ID).Msg("payment: receipt notification failed")
	}
}

func billTo(data Data) *processor.BillTo {
	parts := strings.Fields(data.Get("billing_full_name"))
	b := &processor.BillTo{
		Address: data.Get("billing_address_line1"),
		City:    data.Get("billing_city"),
		State:   data.Get("billing_state"),
		Zip:     data.Get("billing_postal_code"),
		Country: data.Get("billing_country"),
	}
	if len(parts) > 0 {
		b.FirstName = parts[0]
		b.LastName = parts[len(parts)-1]
	}
	return b
}

func declineMessage(res processor.Result) string {
	msg := res.Message
	if msg == "" {
		msg = "Payment was not approved"
	}
	if res.Code != "" {
		return fmt.Sprintf("%s (code %s)", msg, res.Code)
	}
	return msg
}

func twoDigits(month string) string {
	if len(month) == 1 {
		return "0" + month
	}
	return month
}
