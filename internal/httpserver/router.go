package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"commerce-backoffice/internal/domain"
	paymentrepo "commerce-backoffice/internal/repository/payment"
	cartsvc "commerce-backoffice/internal/service/cart"
	paymentsvc "commerce-backoffice/internal/service/payment"
	productsvc "commerce-backoffice/internal/service/product"
	"commerce-backoffice/internal/processor"
	"commerce-backoffice/internal/telemetry"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type cartService interface {
	Create(ctx context.Context, owner domain.Owner, currency string) (*domain.Cart, error)
	Load(ctx context.Context, filter domain.CartFilter) (*domain.Cart, error)
	Current(ctx context.Context, owner domain.Owner, currency string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID int64, in cartsvc.AddItemInput) error
	AddProduct(ctx context.Context, cartID, productID, attributeID int64, quantity int) error
	RemoveItem(ctx context.Context, itemID int64) (bool, error)
	RemoveItemByProduct(ctx context.Context, productID int64) (int64, error)
	RemoveItemByAttribute(ctx context.Context, attributeID int64) (int64, error)
	AddNote(ctx context.Context, cartID int64, note json.RawMessage) error
	Summarize(ctx context.Context, c *domain.Cart) (*cartsvc.Summary, error)
	Clear(ctx context.Context, cartID int64) error
	RemoveEmpty(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]domain.Cart, error)
	ListNonEmpty(ctx context.Context) ([]domain.Cart, error)
}

type catalogService interface {
	List(ctx context.Context, storeID string, includeInactive bool) ([]domain.Product, error)
	Get(ctx context.Context, id int64, currency string, includeInactive bool) (*productsvc.Listing, error)
}

type checkoutService interface {
	BeginCheckout(ctx context.Context, cartID int64) (int64, error)
	Load(ctx context.Context, handle int64) (*domain.CheckoutDraft, error)
	QuoteCart(ctx context.Context, cartID int64) (*domain.Quote, error)
	AppendBillingAddress(ctx context.Context, handle int64, addr domain.Address) error
	AppendShippingAddress(ctx context.Context, handle int64, addr domain.Address) error
	Commit(ctx context.Context, handle int64) ([]domain.Order, error)
}

type gatewayRegistry interface {
	Get(id string) (paymentsvc.Gateway, error)
	Enabled() []paymentsvc.Gateway
}

type orderService interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, storeID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	SendInvoice(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, f domain.OrderSummaryFilter) ([]domain.OrderSummaryRow, error)
}

type paymentService interface {
	Get(ctx context.Context, id int64) (*domain.Payment, error)
	ByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error)
	ByTransaction(ctx context.Context, transactionID string) (*domain.Payment, error)
	List(ctx context.Context, q paymentrepo.Query) ([]domain.Payment, error)
	Detail(ctx context.Context, paymentID int64) (*domain.PaymentDetail, error)
	PayLater(ctx context.Context, orderID int64) (*domain.PayLater, error)
	Refund(ctx context.Context, paymentID int64, amount decimal.Decimal) (*domain.Payment, processor.Result, error)
	Void(ctx context.Context, paymentID int64) (*domain.Payment, processor.Result, error)
}

type rateService interface {
	Base() string
	RefreshIfDue(ctx context.Context, base string) (bool, error)
	Table(ctx context.Context, base string) (*domain.RateTable, error)
	Tables(ctx context.Context) ([]domain.RateTable, error)
}

type priceService interface {
	Build(attributeID int64, base decimal.Decimal, currency string, discount decimal.Decimal, storeID string) *domain.Price
	Load(ctx context.Context, attributeID int64, storeID string) (*domain.Price, error)
	Save(ctx context.Context, p *domain.Price) error
	Delete(ctx context.Context, attributeID int64) error
}

type stagingStore interface {
	Clear(ctx context.Context) error
}

type cartReminder interface {
	RemindCarts(ctx context.Context, carts []domain.Cart) (int, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	Catalog   catalogService
	Carts     cartService
	Checkout  checkoutService
	Gateways  gatewayRegistry
	Orders    orderService
	Payments  paymentService
	Rates     rateService
	Prices    priceService
	Staging   stagingStore
	Reminders cartReminder
}

// Options tune the router's middleware.
type Options struct {
	JWTSecret        string
	PaymentRateLimit float64
	CORSOrigins      []string
	Metrics          *telemetry.Metrics
}

type handlers struct {
	Deps
	logger zerolog.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, db pinger, deps Deps, opts Options) (*gin.Engine, error) {
	if deps.Carts == nil || deps.Checkout == nil || deps.Gateways == nil {
		return nil, errors.New("httpserver: carts, checkout and gateways are required")
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(logger), metricsMiddleware(opts.Metrics))
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	h := &handlers{Deps: deps, logger: logger}
	api := router.Group("/", identityMiddleware(opts.JWTSecret))

	if deps.Catalog != nil {
		api.GET("/products", h.listProducts)
		api.GET("/products/:id", h.getProduct)
	}

	api.POST("/carts", h.createCart)
	api.GET("/carts/current", h.currentCart)
	api.GET("/carts/:id", h.getCart)
	api.POST("/carts/:id/items", h.addCartItem)
	api.DELETE("/carts/:id/items/:itemId", h.removeCartItem)
	api.PUT("/carts/:id/note", h.setCartNote)

	api.POST("/checkout", h.beginCheckout)
	api.GET("/checkout/:handle", h.getCheckout)
	api.PUT("/checkout/:handle/billing", h.setBilling)
	api.PUT("/checkout/:handle/shipping", h.setShipping)
	api.POST("/checkout/:handle/commit", h.commitCheckout)

	api.GET("/payments/gateways", h.listGateways)
	api.GET("/payments/gateways/:id/form", h.gatewayForm)
	api.POST("/payments/:gateway", rateLimit(opts.PaymentRateLimit), h.processPayment)

	admin := api.Group("/admin", adminRequired())
	admin.GET("/orders", h.listOrders)
	admin.GET("/orders/summary", h.orderSummary)
	admin.GET("/orders/:id", h.getOrder)
	admin.PUT("/orders/:id/status", h.updateOrderStatus)
	admin.POST("/orders/:id/invoice", h.sendInvoice)
	admin.DELETE("/orders/:id", h.deleteOrder)
	admin.GET("/orders/:id/payments", h.orderPayments)
	admin.GET("/orders/:id/pay-later", h.orderPayLater)

	admin.GET("/payments", h.listPayments)
	admin.GET("/payments/:id", h.getPayment)
	admin.GET("/payments/transactions/:tx", h.paymentByTransaction)
	admin.POST("/payments/:id/refund", h.refundPayment)
	admin.POST("/payments/:id/void", h.voidPayment)

	admin.GET("/carts", h.listCarts)
	admin.DELETE("/carts/empty", h.removeEmptyCarts)
	admin.DELETE("/carts/:id/items", h.clearCart)
	admin.DELETE("/carts/items/by-product/:productId", h.removeItemsByProduct)
	admin.DELETE("/carts/items/by-attribute/:attributeId", h.removeItemsByAttribute)
	admin.POST("/carts/reminders", h.remindCarts)

	admin.GET("/rates", h.listRates)
	admin.GET("/rates/:base", h.getRates)
	admin.POST("/rates/refresh", h.refreshRates)
	admin.DELETE("/staging", h.clearStaging)
	admin.GET("/prices/:attributeId", h.getPrice)
	admin.PUT("/prices/:attributeId", h.upsertPrice)
	admin.DELETE("/prices/:attributeId", h.deletePrice)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", sessionHeader, requestIDHeader},
		ExposeHeaders: []string{sessionHeader, requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
