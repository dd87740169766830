package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"commerce-backoffice/internal/domain"
	cartrepo "commerce-backoffice/internal/repository/cart"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo         cartRepo
	products     productRepo
	prices       priceSource
	baseCurrency string
	logger       zerolog.Logger
}

type cartRepo interface {
	Create(ctx context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error)
	Find(ctx context.Context, filter domain.CartFilter) (*domain.Cart, error)
	List(ctx context.Context) ([]domain.Cart, error)
	ListNonEmpty(ctx context.Context) ([]domain.Cart, error)
	AddItem(ctx context.Context, in cartrepo.AddItemInput) error
	RemoveItem(ctx context.Context, itemID int64) (bool, error)
	RemoveItemsByProduct(ctx context.Context, productID int64) (int64, error)
	RemoveItemsByAttribute(ctx context.Context, attributeID int64) (int64, error)
	SetNote(ctx context.Context, cartID int64, note json.RawMessage) error
	ClearItems(ctx context.Context, cartID int64) error
	Delete(ctx context.Context, cartID int64) error
	DeleteEmpty(ctx context.Context) (int64, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetAttribute(ctx context.Context, id int64) (*domain.ProductAttribute, error)
}

type priceSource interface {
	Load(ctx context.Context, attributeID int64, storeID string) (*domain.Price, error)
	PriceIn(ctx context.Context, p *domain.Price, target string) decimal.Decimal
}

func New(repo cartRepo, products productRepo, prices priceSource, baseCurrency string, logger zerolog.Logger) *Service {
	return &Service{repo: repo, products: products, prices: prices, baseCurrency: baseCurrency, logger: logger}
}

type AddItemInput struct {
	ProductID   int64           `json:"productId"`
	AttributeID *int64          `json:"attributeId,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (s *Service) Create(ctx context.Context, owner domain.Owner, currency string) (*domain.Cart, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, domain.Invalidf("currency required")
	}
	if !domain.ValidCurrencyCode(currency) {
		return nil, domain.ErrInvalidCurrencyCode
	}
	if owner.IsZero() {
		return nil, domain.Invalidf("cart owner required")
	}
	return s.repo.Create(ctx, cartrepo.CreateCartInput{UserID: owner.UserID, SessionID: owner.SessionID, Currency: currency})
}

// Load returns the cart matching filter with its items and subtotal.
func (s *Service) Load(ctx context.Context, filter domain.CartFilter) (*domain.Cart, error) {
	if filter.Empty() {
		return nil, domain.Invalidf("cart id, user or session required")
	}
	c, err := s.repo.Find(ctx, filter)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCartNotFound
	}
	return c, err
}

// Current loads the owner's cart, creating one in currency when none exists.
func (s *Service) Current(ctx context.Context, owner domain.Owner, currency string) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, domain.Invalidf("cart owner required")
	}
	filter := domain.CartFilter{UserID: owner.UserID}
	if owner.UserID == nil {
		filter.SessionID = owner.SessionID
	}
	c, err := s.Load(ctx, filter)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return nil, err
	}
	if currency == "" {
		currency = s.baseCurrency
	}
	return s.Create(ctx, owner, currency)
}

// AddItem adds quantity of a product line at the given unit price. Adding an
// existing (product, attribute) pair increases its quantity and keeps the
// original unit price.
func (s *Service) AddItem(ctx context.Context, cartID int64, in AddItemInput) error {
	if in.ProductID <= 0 {
		return domain.Invalidf("product id required")
	}
	if in.Quantity <= 0 {
		return domain.Invalidf("quantity must be positive")
	}
	if in.UnitPrice.IsNegative() {
		return domain.Invalidf("unit price must not be negative")
	}
	if err := s.repo.AddItem(ctx, cartrepo.AddItemInput{
		CartID:      cartID,
		ProductID:   in.ProductID,
		AttributeID: in.AttributeID,
		Quantity:    in.Quantity,
		UnitPrice:   domain.RoundMoney(in.UnitPrice),
	}); err != nil {
		return err
	}
	s.logger.Debug().Int64("cart_id", cartID).Int64("product_id", in.ProductID).Int("quantity", in.Quantity).Msg("cart: item added")
	return nil
}

// AddProduct prices a variant from the catalog in the base currency and adds
// it to the cart.
func (s *Service) AddProduct(ctx context.Context, cartID, productID, attributeID int64, quantity int) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalidf("product not found")
		}
		return err
	}
	if !product.Active {
		return domain.Invalidf("product not available")
	}
	attr, err := s.products.GetAttribute(ctx, attributeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalidf("product attribute not found")
		}
		return err
	}
	if attr.ProductID != product.ID {
		return domain.Invalidf("attribute does not belong to product")
	}
	if attr.MaxCartQuantity > 0 && quantity > attr.MaxCartQuantity {
		return domain.Invalidf("quantity exceeds maximum of %d", attr.MaxCartQuantity)
	}
	price, err := s.prices.Load(ctx, attr.ID, product.StoreID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalidf("product has no price")
		}
		return err
	}
	return s.AddItem(ctx, cartID, AddItemInput{
		ProductID:   product.ID,
		AttributeID: &attr.ID,
		Quantity:    quantity,
		UnitPrice:   s.prices.PriceIn(ctx, price, s.baseCurrency),
	})
}

// RemoveItem deletes a line and refreshes the cart total. It reports false
// when the item does not exist.
func (s *Service) RemoveItem(ctx context.Context, itemID int64) (bool, error) {
	return s.repo.RemoveItem(ctx, itemID)
}

// RemoveItemByProduct deletes the product's lines from every cart without
// refreshing cart totals.
func (s *Service) RemoveItemByProduct(ctx context.Context, productID int64) (int64, error) {
	return s.repo.RemoveItemsByProduct(ctx, productID)
}

// RemoveItemByAttribute deletes the attribute's lines from every cart without
// refreshing cart totals.
func (s *Service) RemoveItemByAttribute(ctx context.Context, attributeID int64) (int64, error) {
	return s.repo.RemoveItemsByAttribute(ctx, attributeID)
}

func (s *Service) AddNote(ctx context.Context, cartID int64, note json.RawMessage) error {
	if len(note) == 0 || !json.Valid(note) {
		return domain.Invalidf("note must be valid JSON")
	}
	err := s.repo.SetNote(ctx, cartID, note)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrCartNotFound
	}
	return err
}

// Taxes aggregates the tax lines of every item's price, summing amounts of
// lines sharing both name and rate. Amounts are per unit.
func (s *Service) Taxes(ctx context.Context, cartID int64) ([]domain.TaxLine, error) {
	c, err := s.Load(ctx, domain.CartFilter{ID: &cartID})
	if err != nil {
		return nil, err
	}
	return s.taxesOf(ctx, c)
}

func (s *Service) taxesOf(ctx context.Context, c *domain.Cart) ([]domain.TaxLine, error) {
	var out []domain.TaxLine
	index := map[string]int{}
	stores := map[int64]string{}

	for _, item := range c.Items {
		if item.AttributeID == nil {
			continue
		}
		storeID, ok := stores[item.ProductID]
		if !ok {
			p, err := s.products.GetByID(ctx, item.ProductID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			if p != nil {
				storeID = p.StoreID
			}
			stores[item.ProductID] = storeID
		}
		price, err := s.prices.Load(ctx, *item.AttributeID, storeID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		for _, tax := range price.Taxes {
			key := tax.Name + "_" + tax.Rate.String()
			if i, ok := index[key]; ok {
				out[i].Amount = out[i].Amount.Add(tax.Amount)
				continue
			}
			index[key] = len(out)
			out = append(out, tax)
		}
	}
	if out == nil {
		out = []domain.TaxLine{}
	}
	return out, nil
}

// GrandTotal is the cart total plus aggregated taxes. Shipping is not included.
func (s *Service) GrandTotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	c, err := s.Load(ctx, domain.CartFilter{ID: &cartID})
	if err != nil {
		return decimal.Zero, err
	}
	taxes, err := s.taxesOf(ctx, c)
	if err != nil {
		return decimal.Zero, err
	}
	total := c.Total
	for _, t := range taxes {
		total = total.Add(t.Amount)
	}
	return domain.RoundMoney(total), nil
}

// Summary bundles a loaded cart with its taxes and grand total.
type Summary struct {
	Cart       *domain.Cart     `json:"cart"`
	Taxes      []domain.TaxLine `json:"taxes"`
	GrandTotal decimal.Decimal  `json:"grandTotal"`
}

func (s *Service) Summarize(ctx context.Context, c *domain.Cart) (*Summary, error) {
	taxes, err := s.taxesOf(ctx, c)
	if err != nil {
		return nil, err
	}
	total := c.Total
	for _, t := range taxes {
		total = total.Add(t.Amount)
	}
	return &Summary{Cart: c, Taxes: taxes, GrandTotal: domain.RoundMoney(total)}, nil
}

func (s *Service) Clear(ctx context.Context, cartID int64) error {
	return s.repo.ClearItems(ctx, cartID)
}

func (s *Service) Delete(ctx context.Context, cartID int64) error {
	return s.repo.Delete(ctx, cartID)
}

func (s *Service) RemoveEmpty(ctx context.Context) (int64, error) {
	return s.repo.DeleteEmpty(ctx)
}

func (s *Service) List(ctx context.Context) ([]domain.Cart, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListNonEmpty(ctx context.Context) ([]domain.Cart, error) {
	return s.repo.ListNonEmpty(ctx)
}
