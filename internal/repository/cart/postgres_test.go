package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/testpg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func TestPostgres_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(testpg.Pool(t), zerolog.Nop())

	created, err := repo.Create(ctx, CreateCartInput{SessionID: strPtr("sess-1"), Currency: "USD"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Currency != "USD" || !created.Total.IsZero() {
		t.Fatalf("unexpected cart %+v", created)
	}

	byID, err := repo.Find(ctx, domain.CartFilter{ID: &created.ID})
	if err != nil {
		t.Fatalf("Find by id: %v", err)
	}
	bySession, err := repo.Find(ctx, domain.CartFilter{SessionID: strPtr("sess-1")})
	if err != nil {
		t.Fatalf("Find by session: %v", err)
	}
	if byID.ID != created.ID || bySession.ID != created.ID {
		t.Fatalf("find mismatch %d %d", byID.ID, bySession.ID)
	}

	if _, err := repo.Find(ctx, domain.CartFilter{UserID: int64Ptr(404)}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := repo.Find(ctx, domain.CartFilter{}); err == nil {
		t.Fatalf("expected error for empty filter")
	}
}

func TestPostgres_AddItemUpsertsAndKeepsFirstPrice(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(testpg.Pool(t), zerolog.Nop())
	cart, err := repo.Create(ctx, CreateCartInput{UserID: int64Ptr(1), Currency: "USD"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	add := func(attr *int64, qty int, price string) {
		t.Helper()
		if err := repo.AddItem(ctx, AddItemInput{
			CartID: cart.ID, ProductID: 7, AttributeID: attr, Quantity: qty,
			UnitPrice: decimal.RequireFromString(price),
		}); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}
	add(int64Ptr(3), 2, "25.00")
	add(int64Ptr(3), 1, "99.00")
	add(nil, 1, "10.00")
	add(nil, 2, "11.00")

	got, err := repo.Find(ctx, domain.CartFilter{ID: &cart.ID})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got.Items))
	}
	first := got.Items[0]
	if first.Quantity != 3 || !first.UnitPrice.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("unexpected attribute line %+v", first)
	}
	second := got.Items[1]
	if second.AttributeID != nil || second.Quantity != 3 || !second.UnitPrice.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("unexpected null-attribute line %+v", second)
	}
	if !got.Total.Equal(decimal.RequireFromString("105")) || !got.Subtotal.Equal(got.Total) {
		t.Fatalf("unexpected totals total=%s subtotal=%s", got.Total, got.Subtotal)
	}
}

func TestPostgres_RemoveItemRecomputesTotal(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(testpg.Pool(t), zerolog.Nop())
	cart, _ := repo.Create(ctx, CreateCartInput{UserID: int64Ptr(1), Currency: "USD"})
	_ = repo.AddItem(ctx, AddItemInput{CartID: cart.ID, ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(5)})
	_ = repo.AddItem(ctx, AddItemInput{CartID: cart.ID, ProductID: 2, Quantity: 2, UnitPrice: decimal.NewFromInt(4)})

	loaded, _ := repo.Find(ctx, domain.CartFilter{ID: &cart.ID})
	ok, err := repo.RemoveItem(ctx, loaded.Items[0].ID)
	if err != nil || !ok {
		t.Fatalf("RemoveItem: ok=%v err=%v", ok, err)
	}
	ok, err = repo.RemoveItem(ctx, 999999)
	if err != nil || ok {
		t.Fatalf("expected false for unknown item, ok=%v err=%v", ok, err)
	}

	loaded, _ = repo.Find(ctx, domain.CartFilter{ID: &cart.ID})
	if !loaded.Total.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected total 8, got %s", loaded.Total)
	}
}

func TestPostgres_BulkRemovalLeavesTotal(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(testpg.Pool(t), zerolog.Nop())
	cart, _ := repo.Create(ctx, CreateCartInput{UserID: int64Ptr(1), Currency: "USD"})
	_ = repo.AddItem(ctx, AddItemInput{CartID: cart.ID, ProductID: 1, AttributeID: int64Ptr(11), Quantity: 1, UnitPrice: decimal.NewFromInt(5)})

	n, err := repo.RemoveItemsByAttribute(ctx, 11)
	if err != nil || n != 1 {
		t.Fatalf("RemoveItemsByAttribute: n=%d err=%v", n, err)
	}
	loaded, _ := repo.Find(ctx, domain.CartFilter{ID: &cart.ID})
	if len(loaded.Items) != 0 || !loaded.Total.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected stale total 5 with no items, got %s items=%d", loaded.Total, len(loaded.Items))
	}
}

func TestPostgres_NoteClearAndDeleteEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(testpg.Pool(t), zerolog.Nop())
	full, _ := repo.Create(ctx, CreateCartInput{UserID: int64Ptr(1), Currency: "USD"})
	empty, _ := repo.Create(ctx, CreateCartInput{UserID: int64Ptr(2), Currency: "USD"})
	_ = repo.AddItem(ctx, AddItemInput{CartID: full.ID, ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(5)})

	if err := repo.SetNote(ctx, full.ID, json.RawMessage(`{"gift":true}`)); err != nil {
		t.Fatalf("SetNote: %v", err)
	}
	if err := repo.SetNote(ctx, 424242, json.RawMessage(`{}`)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	nonEmpty, err := repo.ListNonEmpty(ctx)
	if err != nil || len(nonEmpty) != 1 || nonEmpty[0].ID != full.ID {
		t.Fatalf("ListNonEmpty: %+v err=%v", nonEmpty, err)
	}

	n, err := repo.DeleteEmpty(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteEmpty: n=%d err=%v", n, err)
	}
	if _, err := repo.Find(ctx, domain.CartFilter{ID: &empty.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected empty cart removed, got %v", err)
	}

	if err := repo.ClearItems(ctx, full.ID); err != nil {
		t.Fatalf("ClearItems: %v", err)
	}
	loaded, _ := repo.Find(ctx, domain.CartFilter{ID: &full.ID})
	if len(loaded.Items) != 0 || !loaded.Total.IsZero() || string(loaded.Note) == "" {
		t.Fatalf("unexpected cart after clear %+v", loaded)
	}
}
