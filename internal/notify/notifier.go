package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/telemetry"
	"github.com/rs/zerolog"
)

type formatter interface {
	Format(ev Event) (*Email, error)
}

// Notifier formats and mails events, then publishes them to the broker.
type Notifier struct {
	formatters formatter
	mailer     Mailer
	publisher  Publisher
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
	now        func() time.Time
}

func New(formatters formatter, mailer Mailer, publisher Publisher, logger zerolog.Logger, metrics *telemetry.Metrics) *Notifier {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if mailer == nil {
		mailer = DiscardMailer{Logger: logger}
	}
	return &Notifier{formatters: formatters, mailer: mailer, publisher: publisher, logger: logger, metrics: metrics, now: time.Now}
}

// Notify mails the formatted event to ev.To and publishes order events.
// Events without a configured formatter or recipient are only published.
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	var errs []error
	if err := n.mail(ctx, ev); err != nil {
		errs = append(errs, err)
	}
	if ev.Order != nil {
		if err := n.publish(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", ev.Kind, err))
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) mail(ctx context.Context, ev Event) error {
	if ev.To.Email == "" {
		n.count(ev.Kind, "no_recipient")
		return nil
	}
	email, err := n.formatters.Format(ev)
	if errors.Is(err, ErrNoFormatter) {
		n.count(ev.Kind, "disabled")
		return nil
	}
	if err != nil {
		n.count(ev.Kind, "error")
		return fmt.Errorf("format %s: %w", ev.Kind, err)
	}
	err = n.mailer.Send(ctx, Message{
		To:          ev.To.Email,
		ToName:      ev.To.Name,
		Subject:     email.Subject,
		HTML:        email.HTML,
		Text:        email.Text,
		Attachments: email.Attachments,
		Bcc:         ev.Bcc,
	})
	if err != nil {
		n.count(ev.Kind, "error")
		return err
	}
	n.count(ev.Kind, "sent")
	return nil
}

func (n *Notifier) publish(ctx context.Context, ev Event) error {
	o := ev.Order
	msg := OrderMessage{
		Type:       "order." + eventName(ev.Kind),
		OrderID:    o.ID,
		StoreID:    o.StoreID,
		UserID:     o.UserID,
		Status:     string(o.Status),
		Currency:   o.Currency,
		GrandTotal: o.GrandTotal.StringFixed(2),
		OccurredAt: n.now().UTC(),
	}
	if ev.Payment != nil {
		msg.PaymentID = ev.Payment.ID
	}
	return n.publisher.Publish(ctx, strconv.FormatInt(o.ID, 10), msg)
}

func eventName(k Kind) string {
	switch k {
	case OrderConfirmation:
		return "placed"
	case StatusChange:
		return "status_changed"
	case PaymentReceived:
		return "payment_received"
	case Invoice:
		return "invoiced"
	}
	return string(k)
}

func (n *Notifier) count(kind Kind, result string) {
	if n.metrics != nil {
		n.metrics.Notifications.WithLabelValues(string(kind), result).Inc()
	}
}

type customerLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
}

// RemindCarts mails a cart reminder to the registered owner of every cart.
// Guest carts are skipped. It returns the number of reminders sent.
func (n *Notifier) RemindCarts(ctx context.Context, carts []domain.Cart, customers customerLookup) (int, error) {
	sent := 0
	var errs []error
	for i := range carts {
		c := &carts[i]
		if c.UserID == nil {
			continue
		}
		cust, err := customers.GetByID(ctx, *c.UserID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				errs = append(errs, err)
			}
			continue
		}
		ev := Event{Kind: CartReminder, Cart: c, Customer: cust, To: RecipientOf(cust, nil)}
		if err := n.mail(ctx, ev); err != nil {
			n.logger.Warn().Err(err).Int64("cart_id", c.ID).Msg("notify: cart reminder failed")
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// CartReminders binds a Notifier to the customer lookup used for reminders.
type CartReminders struct {
	notifier  *Notifier
	customers customerLookup
}

func NewCartReminders(n *Notifier, customers customerLookup) *CartReminders {
	return &CartReminders{notifier: n, customers: customers}
}

func (r *CartReminders) RemindCarts(ctx context.Context, carts []domain.Cart) (int, error) {
	return r.notifier.RemindCarts(ctx, carts, r.customers)
}
