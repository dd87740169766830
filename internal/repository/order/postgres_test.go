package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/testpg"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func seedCartAndStaging(ctx context.Context, t *testing.T, pool *pgxpool.Pool) (int64, int64) {
	t.Helper()
	var cartID, stagingID int64
	if err := pool.QueryRow(ctx, `INSERT INTO carts (user_id, currency) VALUES (1, 'USD') RETURNING id`).Scan(&cartID); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO staging_records (payload) VALUES ('{}') RETURNING id`).Scan(&stagingID); err != nil {
		t.Fatalf("seed staging: %v", err)
	}
	return cartID, stagingID
}

func sampleOrder(store, currency string) domain.Order {
	attr := int64(3)
	return domain.Order{
		StoreID:    store,
		Status:     domain.OrderPlaced,
		Currency:   currency,
		Subtotal:   decimal.NewFromInt(50),
		TaxTotal:   decimal.NewFromInt(8),
		GrandTotal: decimal.NewFromInt(58),
		Items: []domain.OrderItem{{
			ProductID: 7, AttributeID: &attr, Name: "Mug - Blue",
			UnitPrice: decimal.NewFromInt(25), Quantity: 2, TotalPrice: decimal.NewFromInt(50),
		}},
		Taxes: []domain.OrderTax{{Name: "VAT", Rate: decimal.NewFromInt(16), Amount: decimal.NewFromInt(8)}},
	}
}

func countRows(ctx context.Context, t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestPostgres_CommitFansOutPerStore(t *testing.T) {
	ctx := context.Background()
	pool := testpg.Pool(t)
	repo := NewPostgres(pool, zerolog.Nop())
	cartID, stagingID := seedCartAndStaging(ctx, t, pool)
	addr := &domain.Address{FullName: "Ada", AddressLine1: "1 Main", City: "Town", Country: "US"}
	ship := &domain.Address{FullName: "Bob", AddressLine1: "2 Side", City: "City", Country: "US"}

	saved, err := repo.Commit(ctx, CommitInput{
		Orders:    []domain.Order{sampleOrder("a", "USD"), sampleOrder("b", "USD")},
		Billing:   addr,
		Shipping:  ship,
		CartID:    cartID,
		StagingID: stagingID,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(saved) != 2 || saved[0].ID == 0 || saved[0].ID >= saved[1].ID {
		t.Fatalf("unexpected saved orders %+v", saved)
	}
	if countRows(ctx, t, pool, "carts") != 0 || countRows(ctx, t, pool, "staging_records") != 0 {
		t.Fatalf("expected cart and staging record removed")
	}
	if countRows(ctx, t, pool, "billing_addresses") != 2 || countRows(ctx, t, pool, "shipping_addresses") != 2 {
		t.Fatalf("expected one address pair per order")
	}

	got, err := repo.GetByID(ctx, saved[1].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.StoreID != "b" || len(got.Items) != 1 || len(got.Taxes) != 1 {
		t.Fatalf("unexpected order %+v", got)
	}
	if got.Billing == nil || got.Billing.FullName != "Ada" || got.Shipping == nil || got.Shipping.FullName != "Bob" {
		t.Fatalf("unexpected addresses billing=%+v shipping=%+v", got.Billing, got.Shipping)
	}
	if !got.GrandTotal.Equal(decimal.NewFromInt(58)) || got.Items[0].AttributeID == nil {
		t.Fatalf("unexpected totals %+v", got)
	}
}

// A failure on a later store rolls back the earlier stores.
func TestPostgres_CommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	pool := testpg.Pool(t)
	repo := NewPostgres(pool, zerolog.Nop())
	cartID, stagingID := seedCartAndStaging(ctx, t, pool)

	_, err := repo.Commit(ctx, CommitInput{
		Orders:    []domain.Order{sampleOrder("a", "USD"), sampleOrder("b", "TOOLONG")},
		CartID:    cartID,
		StagingID: stagingID,
	})
	if err == nil {
		t.Fatalf("expected commit error")
	}
	if countRows(ctx, t, pool, "orders") != 0 || countRows(ctx, t, pool, "order_items") != 0 {
		t.Fatalf("expected no orders to survive a failed commit")
	}
	if countRows(ctx, t, pool, "carts") != 1 || countRows(ctx, t, pool, "staging_records") != 1 {
		t.Fatalf("expected cart and staging record kept")
	}
}

func TestPostgres_CommitRequiresStagingRecord(t *testing.T) {
	ctx := context.Background()
	pool := testpg.Pool(t)
	repo := NewPostgres(pool, zerolog.Nop())
	cartID, _ := seedCartAndStaging(ctx, t, pool)

	_, err := repo.Commit(ctx, CommitInput{Orders: []domain.Order{sampleOrder("a", "USD")}, CartID: cartID, StagingID: 999})
	if !errors.Is(err, domain.ErrStagingNotFound) {
		t.Fatalf("expected staging not found, got %v", err)
	}
	if countRows(ctx, t, pool, "orders") != 0 {
		t.Fatalf("expected rollback")
	}
}

func TestPostgres_ListStatusSummaryDelete(t *testing.T) {
	ctx := context.Background()
	pool := testpg.Pool(t)
	repo := NewPostgres(pool, zerolog.Nop())
	cartID, stagingID := seedCartAndStaging(ctx, t, pool)
	saved, err := repo.Commit(ctx, CommitInput{
		Orders: []domain.Order{sampleOrder("a", "USD"), sampleOrder("b", "USD")}, CartID: cartID, StagingID: stagingID,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	byStore, err := repo.List(ctx, "a")
	if err != nil || len(byStore) != 1 || len(byStore[0].Items) != 1 {
		t.Fatalf("List by store: %+v err=%v", byStore, err)
	}
	all, err := repo.List(ctx, "")
	if err != nil || len(all) != 2 || all[0].ID != saved[1].ID {
		t.Fatalf("expected newest first, got %+v err=%v", all, err)
	}

	if err := repo.UpdateStatus(ctx, saved[0].ID, domain.OrderShipped); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := repo.UpdateStatus(ctx, 9999, domain.OrderShipped); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	now := time.Now().UTC()
	rows, err := repo.Summary(ctx, domain.OrderSummaryFilter{Year: now.Year(), Month: int(now.Month()), Status: domain.OrderShipped})
	if err != nil || len(rows) != 1 || rows[0].Count != 1 {
		t.Fatalf("Summary: %+v err=%v", rows, err)
	}

	if err := repo.Delete(ctx, saved[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, saved[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected deleted order gone, got %v", err)
	}
}
