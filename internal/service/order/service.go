// Package order exposes persisted orders and their status transitions.
package order

import (
	"context"
	"errors"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/notify"
	"github.com/rs/zerolog"
)

type orderRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, storeID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, f domain.OrderSummaryFilter) ([]domain.OrderSummaryRow, error)
}

type customerRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
}

type storeLookup interface {
	Get(id string) (*domain.Store, bool)
}

type notifier interface {
	Notify(ctx context.Context, ev notify.Event) error
}

type Service struct {
	repo      orderRepo
	customers customerRepo
	stores    storeLookup
	notifier  notifier
	logger    zerolog.Logger
}

func New(repo orderRepo, customers customerRepo, stores storeLookup, n notifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, customers: customers, stores: stores, notifier: n, logger: logger}
}

// Get returns the order with items, taxes and addresses loaded.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the orders of storeID, or all orders when storeID is empty,
// newest first.
func (s *Service) List(ctx context.Context, storeID string) ([]domain.Order, error) {
	return s.repo.List(ctx, storeID)
}

// UpdateStatus moves the order to status and sends the status change
// notification. Notification failures are logged only.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Invalidf("invalid order status %q", status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("order_id", id).Str("status", string(status)).Msg("order: status updated")
	s.notify(ctx, notify.StatusChange, o)
	return o, nil
}

// SendInvoice mails the invoice of an order to its buyer.
func (s *Service) SendInvoice(ctx context.Context, id int64) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.send(ctx, notify.Invoice, o)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("order_id", id).Msg("order: deleted")
	return nil
}

// Summary counts orders and sums grand totals per day.
func (s *Service) Summary(ctx context.Context, f domain.OrderSummaryFilter) ([]domain.OrderSummaryRow, error) {
	if f.Year <= 0 {
		return nil, domain.Invalidf("summary year required")
	}
	if f.Month < 0 || f.Month > 12 {
		return nil, domain.Invalidf("summary month must be between 1 and 12")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Invalidf("invalid order status %q", f.Status)
	}
	return s.repo.Summary(ctx, f)
}

func (s *Service) notify(ctx context.Context, kind notify.Kind, o *domain.Order) {
	if err := s.send(ctx, kind, o); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", o.ID).Str("event", string(kind)).Msg("order: notification failed")
	}
}

func (s *Service) send(ctx context.Context, kind notify.Kind, o *domain.Order) error {
	if s.notifier == nil {
		return nil
	}
	var customer *domain.Customer
	if o.UserID != nil && s.customers != nil {
		c, err := s.customers.GetByID(ctx, *o.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		customer = c
	}
	var store *domain.Store
	if s.stores != nil {
		store, _ = s.stores.Get(o.StoreID)
	}
	return s.notifier.Notify(ctx, notify.Event{
		Kind:     kind,
		Order:    o,
		Customer: customer,
		Store:    store,
		To:       notify.RecipientOf(customer, o),
	})
}
