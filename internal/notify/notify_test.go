package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/view"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type stubMailer struct {
	sent []Message
	err  error
}

func (s *stubMailer) Send(_ context.Context, m Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

type stubPublisher struct {
	lastKey   string
	lastEvent any
	calls     int
}

func (s *stubPublisher) Publish(_ context.Context, key string, event any) error {
	s.calls++
	s.lastKey = key
	s.lastEvent = event
	return nil
}

type stubCustomers map[int64]*domain.Customer

func (s stubCustomers) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func newRegistry(t *testing.T, mapping map[string]string) *Registry {
	t.Helper()
	r, err := view.New()
	if err != nil {
		t.Fatalf("view.New: %v", err)
	}
	reg, err := NewRegistry(r, mapping)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:         41,
		StoreID:    "north",
		Status:     domain.OrderPlaced,
		Currency:   "USD",
		Subtotal:   decimal.NewFromInt(20),
		GrandTotal: decimal.NewFromInt(20),
		CreatedAt:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Items:      []domain.OrderItem{{Name: "Tea - Green", Quantity: 1, UnitPrice: decimal.NewFromInt(20), TotalPrice: decimal.NewFromInt(20)}},
	}
}

func TestRegistry_MappingAndUnknown(t *testing.T) {
	r, _ := view.New()
	if _, err := NewRegistry(r, map[string]string{"order_confirmation": "fax"}); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	reg := newRegistry(t, map[string]string{"status_change": "invoice", "cart_reminder": ""})
	email, err := reg.Format(Event{Kind: StatusChange, Order: sampleOrder(), Store: &domain.Store{Name: "North"}})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if email.Subject != "Invoice #41" {
		t.Fatalf("expected remapped formatter, got %q", email.Subject)
	}
	if _, err := reg.Format(Event{Kind: CartReminder, Cart: &domain.Cart{}}); !errors.Is(err, ErrNoFormatter) {
		t.Fatalf("expected disabled formatter, got %v", err)
	}
}

func TestRegistry_ConfirmationHasInvoiceAttachment(t *testing.T) {
	reg := newRegistry(t, nil)
	email, err := reg.Format(Event{Kind: OrderConfirmation, Order: sampleOrder(), Store: &domain.Store{Name: "North"}})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if email.Subject != "Order Invoice #41" {
		t.Fatalf("unexpected subject %q", email.Subject)
	}
	if len(email.Attachments) != 1 || email.Attachments[0].Filename != "invoice-41.html" {
		t.Fatalf("unexpected attachments %+v", email.Attachments)
	}
	if !strings.Contains(string(email.Attachments[0].Data), "Tea - Green") {
		t.Fatalf("invoice attachment missing lines")
	}
}

func TestNotifier_MailsAndPublishes(t *testing.T) {
	mailer := &stubMailer{}
	pub := &stubPublisher{}
	n := New(newRegistry(t, nil), mailer, pub, zerolog.Nop(), nil)

	cust := &domain.Customer{ID: 1, FirstName: "Ada", LastName: "Byron", Email: "ada@example.com"}
	err := n.Notify(context.Background(), Event{
		Kind:     OrderConfirmation,
		Order:    sampleOrder(),
		Customer: cust,
		Store:    &domain.Store{Name: "North"},
		To:       RecipientOf(cust, nil),
		Bcc:      []string{"north@example.com"},
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "ada@example.com" || mailer.sent[0].Bcc[0] != "north@example.com" {
		t.Fatalf("unexpected mail %+v", mailer.sent)
	}
	msg, ok := pub.lastEvent.(OrderMessage)
	if !ok || msg.Type != "order.placed" || pub.lastKey != "41" || msg.GrandTotal != "20.00" {
		t.Fatalf("unexpected event key=%s %+v", pub.lastKey, pub.lastEvent)
	}
}

func TestNotifier_NoRecipientStillPublishes(t *testing.T) {
	mailer := &stubMailer{}
	pub := &stubPublisher{}
	n := New(newRegistry(t, nil), mailer, pub, zerolog.Nop(), nil)

	if err := n.Notify(context.Background(), Event{Kind: StatusChange, Order: sampleOrder()}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(mailer.sent) != 0 || pub.calls != 1 {
		t.Fatalf("expected publish only, mails=%d publishes=%d", len(mailer.sent), pub.calls)
	}
}

func TestNotifier_MailErrorReturned(t *testing.T) {
	n := New(newRegistry(t, nil), &stubMailer{err: errors.New("smtp down")}, &stubPublisher{}, zerolog.Nop(), nil)
	err := n.Notify(context.Background(), Event{Kind: StatusChange, Order: sampleOrder(), To: Recipient{Email: "a@b.c"}})
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected mail error, got %v", err)
	}
}

func TestRemindCarts_SkipsGuests(t *testing.T) {
	mailer := &stubMailer{}
	n := New(newRegistry(t, nil), mailer, nil, zerolog.Nop(), nil)
	uid := int64(5)
	sess := "guest"
	carts := []domain.Cart{
		{ID: 1, UserID: &uid, Currency: "USD", Total: decimal.NewFromInt(9)},
		{ID: 2, SessionID: &sess, Currency: "USD", Total: decimal.NewFromInt(3)},
	}
	sent, err := n.RemindCarts(context.Background(), carts, stubCustomers{5: {ID: 5, FirstName: "Lin", Email: "lin@example.com"}})
	if err != nil || sent != 1 {
		t.Fatalf("RemindCarts: sent=%d err=%v", sent, err)
	}
	if mailer.sent[0].Subject != "You left items in your cart" {
		t.Fatalf("unexpected subject %q", mailer.sent[0].Subject)
	}
}

func TestSMTPMailer_Config(t *testing.T) {
	if _, err := NewSMTPMailer(config.SMTPConfig{}, zerolog.Nop()); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSMTPMailer_ComposeHidesBcc(t *testing.T) {
	m, err := NewSMTPMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 25, FromEmail: "shop@example.com", FromName: "Shop"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSMTPMailer: %v", err)
	}
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		if addr != "smtp.example.com:25" || from != "shop@example.com" {
			t.Fatalf("unexpected addr=%s from=%s", addr, from)
		}
		gotTo, gotMsg = to, msg
		return nil
	}
	err = m.Send(context.Background(), Message{
		To:          "ada@example.com",
		Subject:     "Order Invoice #1",
		HTML:        "<p>Hello</p>",
		Bcc:         []string{"store@example.com"},
		Attachments: []Attachment{{Filename: "invoice-1.html", ContentType: "text/html", Data: []byte("<h1>x</h1>")}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(gotTo) != 2 || gotTo[1] != "store@example.com" {
		t.Fatalf("expected bcc in envelope, got %v", gotTo)
	}
	raw := string(gotMsg)
	if strings.Contains(raw, "store@example.com") {
		t.Fatalf("bcc leaked into headers")
	}
	for _, want := range []string{"Subject: Order Invoice #1", "multipart/mixed", `filename=invoice-1.html`} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected %q in message:\n%s", want, raw)
		}
	}
}
