package notify

import (
	"errors"
	"fmt"

	"commerce-backoffice/internal/domain"
)

type templateData struct {
	Order    *domain.Order
	Customer *domain.Customer
	Store    *domain.Store
	Payment  *domain.Payment
	Cart     *domain.Cart
}

func dataOf(ev Event) templateData {
	store := ev.Store
	if store == nil {
		store = &domain.Store{}
	}
	return templateData{Order: ev.Order, Customer: ev.Customer, Store: store, Payment: ev.Payment, Cart: ev.Cart}
}

func builtins(r renderer) map[string]Formatter {
	return map[string]Formatter{
		string(OrderConfirmation): FormatterFunc(func(ev Event) (*Email, error) {
			if ev.Order == nil {
				return nil, errors.New("order confirmation needs an order")
			}
			body, err := r.Render("order_confirmation.html", dataOf(ev))
			if err != nil {
				return nil, err
			}
			invoice, err := invoiceAttachment(r, ev)
			if err != nil {
				return nil, err
			}
			return &Email{
				Subject:     fmt.Sprintf("Order Invoice #%d", ev.Order.ID),
				HTML:        body,
				Attachments: []Attachment{invoice},
			}, nil
		}),
		string(Invoice): FormatterFunc(func(ev Event) (*Email, error) {
			if ev.Order == nil {
				return nil, errors.New("invoice needs an order")
			}
			body, err := r.Render("invoice.html", dataOf(ev))
			if err != nil {
				return nil, err
			}
			return &Email{Subject: fmt.Sprintf("Invoice #%d", ev.Order.ID), HTML: body}, nil
		}),
		string(StatusChange): FormatterFunc(func(ev Event) (*Email, error) {
			if ev.Order == nil {
				return nil, errors.New("status change needs an order")
			}
			body, err := r.Render("status_change.html", dataOf(ev))
			if err != nil {
				return nil, err
			}
			return &Email{
				Subject: fmt.Sprintf("Order #%d is now %s", ev.Order.ID, ev.Order.Status),
				HTML:    body,
			}, nil
		}),
		string(PaymentReceived): FormatterFunc(func(ev Event) (*Email, error) {
			if ev.Order == nil || ev.Payment == nil {
				return nil, errors.New("payment received needs an order and a payment")
			}
			body, err := r.Render("payment_received.html", dataOf(ev))
			if err != nil {
				return nil, err
			}
			return &Email{Subject: fmt.Sprintf("Payment received for order #%d", ev.Order.ID), HTML: body}, nil
		}),
		string(CartReminder): FormatterFunc(func(ev Event) (*Email, error) {
			if ev.Cart == nil {
				return nil, errors.New("cart reminder needs a cart")
			}
			body, err := r.Render("cart_reminder.html", dataOf(ev))
			if err != nil {
				return nil, err
			}
			return &Email{Subject: "You left items in your cart", HTML: body}, nil
		}),
	}
}

func invoiceAttachment(r renderer, ev Event) (Attachment, error) {
	html, err := r.Render("invoice.html", dataOf(ev))
	if err != nil {
		return Attachment{}, err
	}
	return Attachment{
		Filename:    fmt.Sprintf("invoice-%d.html", ev.Order.ID),
		ContentType: "text/html; charset=utf-8",
		Data:        []byte(html),
	}, nil
}
