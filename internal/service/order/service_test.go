package order

import (
	"context"
	"errors"
	"testing"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/notify"
	"github.com/rs/zerolog"
)

type stubRepo struct {
	orders     map[int64]*domain.Order
	lastStore  string
	lastStatus domain.OrderStatus
	lastFilter domain.OrderSummaryFilter
	deleted    []int64
}

func (s *stubRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	if o, ok := s.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) List(_ context.Context, storeID string) ([]domain.Order, error) {
	s.lastStore = storeID
	var out []domain.Order
	for _, o := range s.orders {
		if storeID == "" || o.StoreID == storeID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.lastStatus = status
	o.Status = status
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	if _, ok := s.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.orders, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubRepo) Summary(_ context.Context, f domain.OrderSummaryFilter) ([]domain.OrderSummaryRow, error) {
	s.lastFilter = f
	return []domain.OrderSummaryRow{}, nil
}

type stubCustomers struct{}

func (stubCustomers) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	return &domain.Customer{ID: id, FirstName: "Ada", Email: "ada@example.com"}, nil
}

type stubStores struct{}

func (stubStores) Get(id string) (*domain.Store, bool) { return &domain.Store{ID: id, Name: "Store " + id}, true }

type stubNotifier struct {
	last  notify.Event
	calls int
	err   error
}

func (s *stubNotifier) Notify(_ context.Context, ev notify.Event) error {
	s.calls++
	s.last = ev
	return s.err
}

func newRepo() *stubRepo {
	uid := int64(3)
	return &stubRepo{orders: map[int64]*domain.Order{
		1: {ID: 1, StoreID: "a", UserID: &uid, Status: domain.OrderPlaced},
		2: {ID: 2, StoreID: "b", Status: domain.OrderPlaced},
	}}
}

func TestUpdateStatus_Notifies(t *testing.T) {
	repo := newRepo()
	n := &stubNotifier{}
	svc := New(repo, stubCustomers{}, stubStores{}, n, zerolog.Nop())

	o, err := svc.UpdateStatus(context.Background(), 1, domain.OrderShipped)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if o.Status != domain.OrderShipped || repo.lastStatus != domain.OrderShipped {
		t.Fatalf("unexpected order %+v", o)
	}
	if n.calls != 1 || n.last.Kind != notify.StatusChange || n.last.To.Email != "ada@example.com" || n.last.Store.Name != "Store a" {
		t.Fatalf("unexpected notification %+v", n.last)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	n := &stubNotifier{err: errors.New("smtp down")}
	svc := New(newRepo(), stubCustomers{}, stubStores{}, n, zerolog.Nop())

	if _, err := svc.UpdateStatus(context.Background(), 1, "lost"); err == nil {
		t.Fatalf("expected invalid status error")
	}
	if _, err := svc.UpdateStatus(context.Background(), 99, domain.OrderCompleted); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), 2, domain.OrderCancelled); err != nil {
		t.Fatalf("notification failure must not fail the update: %v", err)
	}
}

func TestSummary_Validation(t *testing.T) {
	repo := newRepo()
	svc := New(repo, nil, nil, nil, zerolog.Nop())
	if _, err := svc.Summary(context.Background(), domain.OrderSummaryFilter{}); err == nil {
		t.Fatalf("expected year error")
	}
	if _, err := svc.Summary(context.Background(), domain.OrderSummaryFilter{Year: 2026, Month: 13}); err == nil {
		t.Fatalf("expected month error")
	}
	f := domain.OrderSummaryFilter{Year: 2026, Month: 2, Status: domain.OrderPlaced}
	if _, err := svc.Summary(context.Background(), f); err != nil || repo.lastFilter != f {
		t.Fatalf("Summary: %v %+v", err, repo.lastFilter)
	}
}

func TestListAndDelete(t *testing.T) {
	repo := newRepo()
	svc := New(repo, nil, nil, nil, zerolog.Nop())

	orders, err := svc.List(context.Background(), "b")
	if err != nil || len(orders) != 1 || orders[0].ID != 2 {
		t.Fatalf("List: %+v %v", orders, err)
	}
	if err := svc.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected deleted order gone, got %v", err)
	}
}

func TestSendInvoice(t *testing.T) {
	n := &stubNotifier{}
	svc := New(newRepo(), stubCustomers{}, stubStores{}, n, zerolog.Nop())
	if err := svc.SendInvoice(context.Background(), 1); err != nil {
		t.Fatalf("SendInvoice: %v", err)
	}
	if n.last.Kind != notify.Invoice {
		t.Fatalf("unexpected kind %s", n.last.Kind)
	}
}
