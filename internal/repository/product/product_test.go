package product

import (
	"context"
	"errors"
	"testing"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/testpg"
	"github.com/rs/zerolog"
)

func TestPostgres_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(testpg.Pool(t), zerolog.Nop())

	p, err := repo.Upsert(ctx, domain.Product{StoreID: "north", Title: "Mug", SKU: "MUG-1", Active: true, Images: []string{"a.png"}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	again, err := repo.Upsert(ctx, domain.Product{StoreID: "north", Title: "Big Mug", SKU: "MUG-1", Active: true})
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if again.ID != p.ID || again.Title != "Big Mug" {
		t.Fatalf("expected update in place, got %+v", again)
	}

	for i, name := range []string{"Blue", "Red"} {
		if _, err := repo.UpsertAttribute(ctx, domain.ProductAttribute{
			ProductID: p.ID, Name: name, Position: 2 - i, Shippable: true,
			Dimensions: domain.Dimensions{Weight: 0.4},
		}); err != nil {
			t.Fatalf("UpsertAttribute: %v", err)
		}
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Attributes) != 2 || got.Attributes[0].Name != "Red" {
		t.Fatalf("expected attributes ordered by position, got %+v", got.Attributes)
	}
	if got.Attributes[1].Dimensions.Weight != 0.4 {
		t.Fatalf("dimensions not round-tripped: %+v", got.Attributes[1].Dimensions)
	}

	attr, err := repo.GetAttribute(ctx, got.Attributes[0].ID)
	if err != nil || attr.ProductID != p.ID {
		t.Fatalf("GetAttribute: %+v err=%v", attr, err)
	}

	list, err := repo.List(ctx, "south")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no south products, got %d err=%v", len(list), err)
	}
	list, err = repo.List(ctx, "")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 product, got %d err=%v", len(list), err)
	}

	if _, err := repo.GetByID(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
