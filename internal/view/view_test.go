package view

import (
	"strings"
	"testing"
	"time"

	"commerce-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

func TestRender_Invoice(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	order := domain.Order{
		ID:         12,
		Status:     domain.OrderPlaced,
		Currency:   "USD",
		Subtotal:   decimal.NewFromInt(50),
		GrandTotal: decimal.RequireFromString("54.5"),
		CreatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Items: []domain.OrderItem{{Name: "Mug - Blue", Quantity: 2, UnitPrice: decimal.NewFromInt(25), TotalPrice: decimal.NewFromInt(50)}},
		Taxes: []domain.OrderTax{{Name: "VAT", Rate: decimal.NewFromInt(9), Amount: decimal.RequireFromString("4.5")}},
	}
	out, err := r.Render("invoice.html", map[string]any{
		"Order": order,
		"Store": domain.Store{Name: "North"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"Invoice #12", "Mug - Blue", "54.50 USD", "2026-03-01", "VAT (9%)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRender_EscapesAndUnknown(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Render("card_form.html", map[string]any{
		"Action":   "/payments/card",
		"CartID":   int64(3),
		"Currency": "USD",
		"Amount":   decimal.NewFromInt(10),
		"Errors":   []string{"<b>Missing required data: card_number</b>"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "<b>Missing") {
		t.Fatalf("expected escaped error text")
	}
	if _, err := r.Render("nope.html", nil); err == nil {
		t.Fatalf("expected unknown template error")
	}
}
