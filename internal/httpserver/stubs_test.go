package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/processor"
	paymentrepo "commerce-backoffice/internal/repository/payment"
	cartsvc "commerce-backoffice/internal/service/cart"
	paymentsvc "commerce-backoffice/internal/service/payment"
	productsvc "commerce-backoffice/internal/service/product"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const testSecret = "test-secret"

type stubCarts struct {
	carts       map[int64]*domain.Cart
	lastOwner   domain.Owner
	lastProduct int64
	lastItem    cartsvc.AddItemInput
	removed     []int64
	err         error
}

func newStubCarts() *stubCarts {
	uid := int64(7)
	sess := "sess-1"
	return &stubCarts{carts: map[int64]*domain.Cart{
		1: {ID: 1, UserID: &uid, Currency: "USD", Items: []domain.CartItem{{ID: 10, CartID: 1, ProductID: 3, Quantity: 1, UnitPrice: decimal.NewFromInt(5)}}},
		2: {ID: 2, SessionID: &sess, Currency: "USD"},
	}}
}

func (s *stubCarts) Create(_ context.Context, owner domain.Owner, currency string) (*domain.Cart, error) {
	s.lastOwner = owner
	if currency == "" {
		return nil, domain.Invalidf("currency required")
	}
	c := &domain.Cart{ID: 99, UserID: owner.UserID, SessionID: owner.SessionID, Currency: currency}
	s.carts[c.ID] = c
	return c, nil
}

func (s *stubCarts) Load(_ context.Context, f domain.CartFilter) (*domain.Cart, error) {
	for _, c := range s.carts {
		if f.ID != nil && c.ID != *f.ID {
			continue
		}
		if f.UserID != nil && (c.UserID == nil || *c.UserID != *f.UserID) {
			continue
		}
		if f.SessionID != nil && (c.SessionID == nil || *c.SessionID != *f.SessionID) {
			continue
		}
		return c, nil
	}
	return nil, domain.ErrCartNotFound
}

func (s *stubCarts) Current(ctx context.Context, owner domain.Owner, currency string) (*domain.Cart, error) {
	s.lastOwner = owner
	return s.Load(ctx, domain.CartFilter{UserID: owner.UserID, SessionID: owner.SessionID})
}

func (s *stubCarts) AddItem(_ context.Context, _ int64, in cartsvc.AddItemInput) error {
	s.lastItem = in
	return s.err
}

func (s *stubCarts) AddProduct(_ context.Context, _ int64, productID, _ int64, _ int) error {
	s.lastProduct = productID
	return s.err
}

func (s *stubCarts) RemoveItem(_ context.Context, itemID int64) (bool, error) {
	s.removed = append(s.removed, itemID)
	return true, nil
}

func (s *stubCarts) RemoveItemByProduct(context.Context, int64) (int64, error)   { return 2, nil }
func (s *stubCarts) RemoveItemByAttribute(context.Context, int64) (int64, error) { return 1, nil }
func (s *stubCarts) AddNote(context.Context, int64, json.RawMessage) error       { return nil }

func (s *stubCarts) Summarize(_ context.Context, c *domain.Cart) (*cartsvc.Summary, error) {
	return &cartsvc.Summary{Cart: c, Taxes: []domain.TaxLine{}, GrandTotal: c.ComputeSubtotal()}, nil
}

func (s *stubCarts) Clear(context.Context, int64) error           { return nil }
func (s *stubCarts) RemoveEmpty(context.Context) (int64, error)   { return 3, nil }
func (s *stubCarts) List(context.Context) ([]domain.Cart, error) { return []domain.Cart{*s.carts[1], *s.carts[2]}, nil }
func (s *stubCarts) ListNonEmpty(context.Context) ([]domain.Cart, error) {
	return []domain.Cart{*s.carts[1]}, nil
}

type stubCheckout struct {
	beginErr  error
	commitErr error
	quoteErr  error
	drafts    map[int64]*domain.CheckoutDraft
	billing   *domain.Address
}

func (s *stubCheckout) BeginCheckout(_ context.Context, cartID int64) (int64, error) {
	if s.beginErr != nil {
		return 0, s.beginErr
	}
	s.drafts[5] = &domain.CheckoutDraft{Cart: domain.DraftCart{ID: cartID}}
	return 5, nil
}

func (s *stubCheckout) Load(_ context.Context, handle int64) (*domain.CheckoutDraft, error) {
	if d, ok := s.drafts[handle]; ok {
		return d, nil
	}
	return nil, domain.ErrStagingNotFound
}

// QuoteCart prices every cart at 7.50 EUR.
func (s *stubCheckout) QuoteCart(context.Context, int64) (*domain.Quote, error) {
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	return &domain.Quote{Currency: "EUR", Total: decimal.RequireFromString("7.50")}, nil
}

func (s *stubCheckout) AppendBillingAddress(_ context.Context, _ int64, addr domain.Address) error {
	s.billing = &addr
	return nil
}

func (s *stubCheckout) AppendShippingAddress(context.Context, int64, domain.Address) error {
	return nil
}

func (s *stubCheckout) Commit(_ context.Context, handle int64) ([]domain.Order, error) {
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	if _, ok := s.drafts[handle]; !ok {
		return nil, domain.ErrStagingNotFound
	}
	delete(s.drafts, handle)
	return []domain.Order{{ID: 1, StoreID: "a"}}, nil
}

type stubGateway struct {
	id       string
	enabled  bool
	outcome  *paymentsvc.Outcome
	err      error
	lastData paymentsvc.Data
	lastForm paymentsvc.FormOptions
}

func (g *stubGateway) ID() string          { return g.id }
func (g *stubGateway) Name() string        { return "Stub " + g.id }
func (g *stubGateway) Description() string { return "stub gateway" }
func (g *stubGateway) Logos() []string     { return nil }
func (g *stubGateway) Enabled() bool       { return g.enabled }

func (g *stubGateway) PaymentForm(opts paymentsvc.FormOptions) (string, error) {
	g.lastForm = opts
	return "<form action=\"" + opts.Action + "\"></form>", nil
}

func (g *stubGateway) ProcessPayment(_ context.Context, data paymentsvc.Data) (*paymentsvc.Outcome, error) {
	g.lastData = data
	return g.outcome, g.err
}

func newGateways(gs ...*stubGateway) *paymentsvc.Registry {
	r := paymentsvc.NewRegistry()
	for _, g := range gs {
		g := g
		r.Register(g.id, func() paymentsvc.Gateway { return g })
	}
	return r
}

type stubOrders struct {
	lastStatus domain.OrderStatus
	lastStore  string
}

func (s *stubOrders) Get(_ context.Context, id int64) (*domain.Order, error) {
	if id != 1 {
		return nil, domain.ErrNotFound
	}
	return &domain.Order{ID: 1, StoreID: "a", Status: domain.OrderPlaced}, nil
}

func (s *stubOrders) List(_ context.Context, storeID string) ([]domain.Order, error) {
	s.lastStore = storeID
	return []domain.Order{{ID: 1, StoreID: "a"}}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Invalidf("invalid order status %q", status)
	}
	s.lastStatus = status
	return &domain.Order{ID: id, Status: status}, nil
}

func (s *stubOrders) SendInvoice(context.Context, int64) error { return nil }
func (s *stubOrders) Delete(context.Context, int64) error      { return nil }

func (s *stubOrders) Summary(context.Context, domain.OrderSummaryFilter) ([]domain.OrderSummaryRow, error) {
	return []domain.OrderSummaryRow{}, nil
}

type stubPayments struct {
	refundErr  error
	lastAmount decimal.Decimal
}

func (s *stubPayments) Get(_ context.Context, id int64) (*domain.Payment, error) {
	return &domain.Payment{ID: id, Status: domain.PaymentPaid}, nil
}
func (s *stubPayments) ByOrder(context.Context, int64) ([]domain.Payment, error) { return nil, nil }
func (s *stubPayments) ByTransaction(context.Context, string) (*domain.Payment, error) {
	return nil, domain.ErrNotFound
}
func (s *stubPayments) List(context.Context, paymentrepo.Query) ([]domain.Payment, error) {
	return nil, nil
}
func (s *stubPayments) Detail(context.Context, int64) (*domain.PaymentDetail, error) {
	return nil, domain.ErrNotFound
}
func (s *stubPayments) PayLater(context.Context, int64) (*domain.PayLater, error) {
	return nil, domain.ErrNotFound
}

func (s *stubPayments) Refund(_ context.Context, id int64, amount decimal.Decimal) (*domain.Payment, processor.Result, error) {
	s.lastAmount = amount
	if s.refundErr != nil {
		return nil, processor.Result{}, s.refundErr
	}
	return &domain.Payment{ID: id, Status: domain.PaymentRefunded}, processor.Result{Status: processor.StatusSuccess}, nil
}

func (s *stubPayments) Void(_ context.Context, id int64) (*domain.Payment, processor.Result, error) {
	return &domain.Payment{ID: id, Status: domain.PaymentPaid}, processor.Result{Status: "declined", Message: "too late"}, nil
}

type stubRates struct{ refreshed string }

func (s *stubRates) Base() string { return "USD" }
func (s *stubRates) RefreshIfDue(_ context.Context, base string) (bool, error) {
	s.refreshed = base
	return true, nil
}
func (s *stubRates) Table(_ context.Context, base string) (*domain.RateTable, error) {
	return &domain.RateTable{Base: base, Rates: map[string]float64{"EUR": 0.9}}, nil
}
func (s *stubRates) Tables(context.Context) ([]domain.RateTable, error) { return nil, nil }

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubCatalog struct {
	lastInactive bool
	lastCurrency string
}

func (s *stubCatalog) List(_ context.Context, storeID string, includeInactive bool) ([]domain.Product, error) {
	s.lastInactive = includeInactive
	return []domain.Product{{ID: 1, StoreID: storeID, Title: "Tee", Active: true}}, nil
}

func (s *stubCatalog) Get(_ context.Context, id int64, currency string, includeInactive bool) (*productsvc.Listing, error) {
	s.lastCurrency = currency
	s.lastInactive = includeInactive
	if id != 1 {
		return nil, domain.ErrNotFound
	}
	return &productsvc.Listing{Product: domain.Product{ID: 1, Title: "Tee", Active: true}, Currency: currency}, nil
}

type fixture struct {
	catalog  *stubCatalog
	carts    *stubCarts
	checkout *stubCheckout
	card     *stubGateway
	later    *stubGateway
	orders   *stubOrders
	payments *stubPayments
	rates    *stubRates
	router   *gin.Engine
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		catalog:  &stubCatalog{},
		carts:    newStubCarts(),
		checkout: &stubCheckout{drafts: map[int64]*domain.CheckoutDraft{}},
		card:     &stubGateway{id: "credit_card", enabled: true, outcome: &paymentsvc.Outcome{Success: true}},
		later:    &stubGateway{id: "pay_later", enabled: false},
		orders:   &stubOrders{},
		payments: &stubPayments{},
		rates:    &stubRates{},
	}
	if opts.JWTSecret == "" {
		opts.JWTSecret = testSecret
	}
	router, err := buildRouter(zerolog.Nop(), stubPinger{}, Deps{
		Catalog:   f.catalog,
		Carts:     f.carts,
		Checkout:  f.checkout,
		Gateways:  newGateways(f.card, f.later),
		Orders:    f.orders,
		Payments:  f.payments,
		Rates:     f.rates,
		Staging:   stubStaging{},
		Reminders: stubReminders{},
	}, opts)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	f.router = router
	return f
}

type stubStaging struct{}

func (stubStaging) Clear(context.Context) error { return nil }

type stubReminders struct{}

func (stubReminders) RemindCarts(_ context.Context, carts []domain.Cart) (int, error) {
	if len(carts) == 0 {
		return 0, errors.New("nothing to remind")
	}
	return len(carts), nil
}

func token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := IssueToken(testSecret, userID, role, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}
