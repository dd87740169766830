// Package checkout turns a cart into staged per-store drafts and commits
// them as orders.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/notify"
	orderrepo "commerce-backoffice/internal/repository/order"
	"commerce-backoffice/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("service/checkout")

type cartLoader interface {
	Load(ctx context.Context, filter domain.CartFilter) (*domain.Cart, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetAttribute(ctx context.Context, id int64) (*domain.ProductAttribute, error)
}

type priceLoader interface {
	Load(ctx context.Context, attributeID int64, storeID string) (*domain.Price, error)
}

type rateSource interface {
	Base() string
	Rate(ctx context.Context, target, base string) (decimal.Decimal, error)
}

type stagingRepo interface {
	Put(ctx context.Context, payload json.RawMessage) (int64, error)
	Get(ctx context.Context, id int64) (*domain.StagingRecord, error)
	Replace(ctx context.Context, id int64, payload json.RawMessage) error
}

type orderRepo interface {
	Commit(ctx context.Context, in orderrepo.CommitInput) ([]domain.Order, error)
}

type customerRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
}

type storeRegistry interface {
	Get(id string) (*domain.Store, bool)
	All() []domain.Store
	ContactEmails(ids []string) []string
}

type notifier interface {
	Notify(ctx context.Context, ev notify.Event) error
}

// Deps groups the collaborators of the checkout pipeline.
type Deps struct {
	Carts     cartLoader
	Products  productRepo
	Prices    priceLoader
	Rates     rateSource
	Staging   stagingRepo
	Orders    orderRepo
	Customers customerRepo
	Stores    storeRegistry
	Notifier  notifier
}

type Service struct {
	deps    Deps
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

func New(deps Deps, logger zerolog.Logger, metrics *telemetry.Metrics) *Service {
	return &Service{deps: deps, logger: logger, metrics: metrics}
}

// BeginCheckout groups the cart's items by owning store, stages the draft
// and returns its handle. The cart is not modified.
func (s *Service) BeginCheckout(ctx context.Context, cartID int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "checkout.begin", trace.WithAttributes(attribute.Int64("cart.id", cartID)))
	defer span.End()

	draft, err := s.Draft(ctx, cartID)
	if err != nil {
		fail(span, err)
		return 0, err
	}
	payload, err := json.Marshal(draft)
	if err != nil {
		fail(span, err)
		return 0, err
	}
	handle, err := s.deps.Staging.Put(ctx, payload)
	if err != nil {
		s.logger.Error().Err(err).Int64("cart_id", cartID).Msg("checkout: stage draft")
		err = fmt.Errorf("%w: stage draft: %v", domain.ErrOrderFailed, err)
		fail(span, err)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("checkout.handle", handle), attribute.Int("checkout.stores", len(draft.Stores)))
	if s.metrics != nil {
		s.metrics.CheckoutsBegun.Inc()
	}
	s.logger.Info().Int64("cart_id", cartID).Int64("handle", handle).Int("stores", len(draft.Stores)).Msg("checkout: draft staged")
	return handle, nil
}

// Draft builds the per-store draft of a cart without staging it. Line
// amounts are converted from the base currency into the cart currency with
// one rate resolved for the whole cart. Price discounts and taxes are first
// brought from the price currency into the base currency.
func (s *Service) Draft(ctx context.Context, cartID int64) (*domain.CheckoutDraft, error) {
	c, err := s.deps.Carts.Load(ctx, domain.CartFilter{ID: &cartID})
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	rate, err := s.deps.Rates.Rate(ctx, c.Currency, s.deps.Rates.Base())
	if err != nil {
		s.logger.Warn().Err(err).Str("currency", c.Currency).Msg("checkout: conversion unavailable, using 1")
		rate = decimal.NewFromInt(1)
	}

	draft := &domain.CheckoutDraft{
		Stores: map[string]*domain.StoreDraft{},
		Cart:   domain.DraftCart{ID: c.ID, UserID: c.UserID, Currency: c.Currency},
	}
	if len(c.Note) > 0 {
		note := string(c.Note)
		draft.Cart.Note = &note
	}

	toBase := map[string]decimal.Decimal{}
	for _, item := range c.Items {
		product, err := s.deps.Products.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %d: %w", item.ProductID, err)
		}
		var attr *domain.ProductAttribute
		var price *domain.Price
		if item.AttributeID != nil {
			if attr, err = s.deps.Products.GetAttribute(ctx, *item.AttributeID); err != nil {
				return nil, fmt.Errorf("load attribute %d: %w", *item.AttributeID, err)
			}
			price, err = s.deps.Prices.Load(ctx, attr.ID, product.StoreID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("load price %d: %w", attr.ID, err)
			}
		}

		group, ok := draft.Stores[product.StoreID]
		if !ok {
			group = &domain.StoreDraft{StoreID: product.StoreID, Taxes: []domain.OrderTax{}}
			draft.Stores[product.StoreID] = group
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		group.Subtotal = group.Subtotal.Add(rate.Mul(item.UnitPrice).Mul(qty))
		if price != nil {
			// Discount and taxes are in the price's own currency.
			priceRate := rate.Mul(s.baseRate(ctx, toBase, price.Currency))
			group.DiscountTotal = group.DiscountTotal.Add(priceRate.Mul(price.Discount))
			for _, tax := range price.Taxes {
				// Same-named taxes replace each other inside a store.
				group.PutTax(domain.OrderTax{Name: tax.Name, Rate: tax.Rate, Amount: domain.RoundMoney(priceRate.Mul(tax.Amount))})
			}
		}
		group.Items = append(group.Items, domain.OrderItem{
			ProductID:   product.ID,
			AttributeID: item.AttributeID,
			Name:        domain.DisplayName(*product, attr),
			UnitPrice:   rate.Mul(item.UnitPrice),
			Quantity:    item.Quantity,
			TotalPrice:  rate.Mul(item.LineTotal()),
		})
		group.SumTaxes()
	}
	return draft, nil
}

// baseRate is the rate from a price currency into the base currency,
// memoized per draft.
func (s *Service) baseRate(ctx context.Context, memo map[string]decimal.Decimal, currency string) decimal.Decimal {
	base := s.deps.Rates.Base()
	if currency == "" || currency == base {
		return decimal.NewFromInt(1)
	}
	if r, ok := memo[currency]; ok {
		return r
	}
	r, err := s.deps.Rates.Rate(ctx, base, currency)
	if err != nil {
		s.logger.Warn().Err(err).Str("currency", currency).Msg("checkout: price conversion unavailable, using 1")
		r = decimal.NewFromInt(1)
	}
	memo[currency] = r
	return r
}

// AppendBillingAddress stores the billing address on the staged draft,
// replacing a previous one.
func (s *Service) AppendBillingAddress(ctx context.Context, handle int64, addr domain.Address) error {
	return s.amend(ctx, handle, func(d *domain.CheckoutDraft) { d.Billing = &addr })
}

// AppendShippingAddress stores the shipping address on the staged draft,
// replacing a previous one.
func (s *Service) AppendShippingAddress(ctx context.Context, handle int64, addr domain.Address) error {
	return s.amend(ctx, handle, func(d *domain.CheckoutDraft) { d.Shipping = &addr })
}

func (s *Service) amend(ctx context.Context, handle int64, fn func(*domain.CheckoutDraft)) error {
	draft, err := s.load(ctx, handle)
	if err != nil {
		return err
	}
	fn(draft)
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return s.deps.Staging.Replace(ctx, handle, payload)
}

// Load returns the staged draft behind handle.
func (s *Service) Load(ctx context.Context, handle int64) (*domain.CheckoutDraft, error) {
	return s.load(ctx, handle)
}

func (s *Service) load(ctx context.Context, handle int64) (*domain.CheckoutDraft, error) {
	rec, err := s.deps.Staging.Get(ctx, handle)
	if err != nil {
		return nil, err
	}
	var draft domain.CheckoutDraft
	if err := json.Unmarshal(rec.Payload, &draft); err != nil {
		return nil, fmt.Errorf("decode draft %d: %w", handle, err)
	}
	return &draft, nil
}

// Commit persists one placed order per configured store present in the
// draft, deletes the cart and the staging record in the same transaction,
// then sends the confirmations. Any persistence failure is reported as
// domain.ErrOrderFailed and leaves nothing behind.
func (s *Service) Commit(ctx context.Context, handle int64) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "checkout.commit", trace.WithAttributes(attribute.Int64("checkout.handle", handle)))
	defer span.End()

	draft, err := s.load(ctx, handle)
	if err != nil {
		fail(span, err)
		return nil, err
	}

	orders, storeIDs, err := s.ordersOf(draft)
	if err != nil {
		s.commitFailed(span, handle, err)
		return nil, err
	}

	saved, err := s.deps.Orders.Commit(ctx, orderrepo.CommitInput{
		Orders:    orders,
		Billing:   draft.Billing,
		Shipping:  draft.Shipping,
		CartID:    draft.Cart.ID,
		StagingID: handle,
	})
	if err != nil {
		if errors.Is(err, domain.ErrStagingNotFound) {
			s.commitFailed(span, handle, err)
			return nil, err
		}
		err = fmt.Errorf("%w: %v", domain.ErrOrderFailed, err)
		s.commitFailed(span, handle, err)
		return nil, err
	}

	if s.metrics != nil {
		for _, o := range saved {
			s.metrics.OrdersCommitted.WithLabelValues(o.StoreID).Inc()
		}
	}
	span.SetAttributes(attribute.Int("checkout.orders", len(saved)))
	s.logger.Info().Int64("handle", handle).Int64("cart_id", draft.Cart.ID).Int("orders", len(saved)).Msg("checkout: committed")

	s.confirm(ctx, draft.Cart.UserID, saved, s.deps.Stores.ContactEmails(storeIDs))
	return saved, nil
}

// Quote prices the staged draft behind handle as Commit would place it.
func (s *Service) Quote(ctx context.Context, handle int64) (*domain.Quote, error) {
	draft, err := s.load(ctx, handle)
	if err != nil {
		return nil, err
	}
	return s.quoteOf(draft)
}

// QuoteCart prices a cart as a checkout of it would, without staging.
func (s *Service) QuoteCart(ctx context.Context, cartID int64) (*domain.Quote, error) {
	draft, err := s.Draft(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.quoteOf(draft)
}

func (s *Service) quoteOf(draft *domain.CheckoutDraft) (*domain.Quote, error) {
	orders, _, err := s.ordersOf(draft)
	if err != nil {
		return nil, err
	}
	q := &domain.Quote{Currency: draft.Cart.Currency, Total: decimal.Zero}
	for _, o := range orders {
		q.Total = q.Total.Add(o.GrandTotal)
	}
	return q, nil
}

// ordersOf builds one unsaved order per configured store in the draft, in
// configuration order. Groups of unknown stores are skipped.
func (s *Service) ordersOf(draft *domain.CheckoutDraft) ([]domain.Order, []string, error) {
	for id := range draft.Stores {
		if _, ok := s.deps.Stores.Get(id); !ok {
			s.logger.Warn().Str("store_id", id).Int64("cart_id", draft.Cart.ID).Msg("checkout: store not configured, group skipped")
		}
	}
	var orders []domain.Order
	var storeIDs []string
	for _, store := range s.deps.Stores.All() {
		group, ok := draft.Stores[store.ID]
		if !ok || len(group.Items) == 0 {
			continue
		}
		orders = append(orders, group.ToOrder(draft.Cart))
		storeIDs = append(storeIDs, store.ID)
	}
	if len(orders) == 0 {
		return nil, nil, fmt.Errorf("%w: no configured store in draft", domain.ErrOrderFailed)
	}
	return orders, storeIDs, nil
}

func (s *Service) commitFailed(span trace.Span, handle int64, err error) {
	fail(span, err)
	if s.metrics != nil {
		s.metrics.CommitFailures.Inc()
	}
	s.logger.Error().Err(err).Int64("handle", handle).Msg("checkout: commit failed")
}

// confirm sends one confirmation per order. Failures are logged; the orders
// are already durable.
func (s *Service) confirm(ctx context.Context, userID *int64, orders []domain.Order, bcc []string) {
	if s.deps.Notifier == nil {
		return
	}
	var customer *domain.Customer
	if userID != nil && s.deps.Customers != nil {
		c, err := s.deps.Customers.GetByID(ctx, *userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Int64("user_id", *userID).Msg("checkout: load customer")
		}
		customer = c
	}
	for i := range orders {
		o := &orders[i]
		store, _ := s.deps.Stores.Get(o.StoreID)
		err := s.deps.Notifier.Notify(ctx, notify.Event{
			Kind:     notify.OrderConfirmation,
			Order:    o,
			Customer: customer,
			Store:    store,
			To:       notify.RecipientOf(customer, o),
			Bcc:      bcc,
		})
		if err != nil {
			s.logger.Warn().Err(err).Int64("order_id", o.ID).Msg("checkout: confirmation failed")
		}
	}
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
