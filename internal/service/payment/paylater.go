package payment

import (
	"context"
	"errors"
	"strconv"
	"time"

	"commerce-backoffice/internal/domain"
)

const PayLaterID = "pay_later"

// PayLater places the orders immediately and records a pending payment
// with the buyer's promised payment date.
type PayLater struct {
	deps    GatewayDeps
	enabled bool
	now     func() time.Time
}

func NewPayLater(enabled bool, deps GatewayDeps) *PayLater {
	return &PayLater{deps: deps, enabled: enabled, now: time.Now}
}

var payLaterKeys = append(append([]string{}, addressKeys...), "pay_later_agree", "pay_later_notes", "expected_payment_date")

func (g *PayLater) ID() string          { return PayLaterID }
func (g *PayLater) Name() string        { return "Pay Later" }
func (g *PayLater) Description() string { return "Place the order now and pay by an agreed date" }
func (g *PayLater) Logos() []string     { return nil }
func (g *PayLater) Enabled() bool       { return g.enabled }

func (g *PayLater) PaymentForm(opts FormOptions) (string, error) {
	return g.deps.Views.Render("pay_later_form.html", opts)
}

// ProcessPayment succeeds when at least one order got its pending payment
// for the order's grand total. An agreement flag other than "1" is stored
// as false and does not block the order.
func (g *PayLater) ProcessPayment(ctx context.Context, data Data) (*Outcome, error) {
	out := &Outcome{}
	if out.Errors = data.missing(payLaterKeys); len(out.Errors) > 0 {
		g.deps.count(PayLaterID, "invalid")
		return out, nil
	}
	expected, err := time.Parse("2006-01-02", data.Get("expected_payment_date"))
	if err != nil {
		g.deps.count(PayLaterID, "invalid")
		return out.fail("Invalid expected_payment_date"), nil
	}

	handle, _, err := stageOrder(ctx, g.deps.Checkout, data)
	switch {
	case errors.Is(err, errAmountMismatch):
		g.deps.count(PayLaterID, "invalid")
		return out.fail("Amount does not match the order total"), nil
	case err != nil:
		g.deps.count(PayLaterID, "order_failed")
		return out.fail("Failed to create order"), err
	}
	orders, err := placeOrder(ctx, g.deps.Checkout, handle, data)
	if err != nil {
		g.deps.count(PayLaterID, "order_failed")
		return out.fail("Failed to create order"), err
	}
	out.Orders = orders

	txID := strconv.FormatInt(g.now().Unix(), 10)
	agree := data.Get("pay_later_agree") == "1"
	for _, o := range orders {
		p, err := g.deps.Payments.Create(ctx, domain.Payment{
			OrderID:       o.ID,
			Method:        PayLaterID,
			TransactionID: txID,
			Amount:        o.GrandTotal,
			Currency:      o.Currency,
			Status:        domain.PaymentPending,
		})
		if err != nil {
			g.deps.Logger.Error().Err(err).Int64("order_id", o.ID).Msg("payment: save pending payment")
			continue
		}
		out.Payments = append(out.Payments, *p)

		_, err = g.deps.Payments.AddPayLater(ctx, domain.PayLater{
			OrderID:      o.ID,
			ExpectedDate: expected,
			Agree:        agree,
			Notes:        data.Get("pay_later_notes"),
		})
		if err != nil {
			g.deps.Logger.Error().Err(err).Int64("order_id", o.ID).Msg("payment: save pay later record")
			continue
		}
		out.Success = true
	}

	if out.Success {
		g.deps.count(PayLaterID, "deferred")
	} else {
		g.deps.count(PayLaterID, "incomplete")
	}
	return out, nil
}
