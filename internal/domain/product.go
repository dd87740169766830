package domain

import "time"

type Product struct {
	ID          int64              `json:"id"`
	StoreID     string             `json:"storeId"`
	Title       string             `json:"title"`
	SKU         string             `json:"sku"`
	Category    string             `json:"category,omitempty"`
	Images      []string           `json:"images,omitempty"`
	Description string             `json:"description,omitempty"`
	Active      bool               `json:"active"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Attributes  []ProductAttribute `json:"attributes,omitempty"`
}

// ProductAttribute is a purchasable variant of a product.
type ProductAttribute struct {
	ID                  int64      `json:"id"`
	ProductID           int64      `json:"productId"`
	Name                string     `json:"name"`
	Position            int        `json:"position"`
	AlwaysInStock       bool       `json:"alwaysInStock"`
	StockLevel          int        `json:"stockLevel"`
	Description         string     `json:"description,omitempty"`
	DefaultCartQuantity int        `json:"defaultCartQuantity"`
	MaxCartQuantity     int        `json:"maxCartQuantity"`
	Shippable           bool       `json:"shippable"`
	Sizes               []string   `json:"sizes,omitempty"`
	Dimensions          Dimensions `json:"dimensions"`
	Price               *Price     `json:"price,omitempty"`
}

type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

// DisplayName is the snapshot name used on order lines.
func DisplayName(p Product, a *ProductAttribute) string {
	if a == nil || a.Name == "" {
		return p.Title
	}
	return p.Title + " - " + a.Name
}
