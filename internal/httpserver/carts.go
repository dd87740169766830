package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"commerce-backoffice/internal/domain"
	cartsvc "commerce-backoffice/internal/service/cart"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type createCartRequest struct {
	Currency string `json:"currency"`
}

type addItemRequest struct {
	ProductID   int64            `json:"productId" binding:"required"`
	AttributeID *int64           `json:"attributeId"`
	Quantity    int              `json:"quantity" binding:"required,min=1"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
}

func (h *handlers) createCart(c *gin.Context) {
	var req createCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	id := identityOf(c)
	if id.Owner().IsZero() {
		id.SessionID = uuid.NewString()
	}
	if id.UserID == nil {
		c.Header(sessionHeader, id.SessionID)
	}
	cart, err := h.Carts.Create(c.Request.Context(), id.Owner(), req.Currency)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (h *handlers) currentCart(c *gin.Context) {
	owner := identityOf(c).Owner()
	if owner.IsZero() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token or session required"})
		return
	}
	cart, err := h.Carts.Current(c.Request.Context(), owner, c.Query("currency"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.writeCart(c, http.StatusOK, cart)
}

func (h *handlers) getCart(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	h.writeCart(c, http.StatusOK, cart)
}

func (h *handlers) addCartItem(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ctx := c.Request.Context()
	var err error
	switch {
	case req.UnitPrice != nil:
		if !identityOf(c).Admin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unit price may only be set by an admin"})
			return
		}
		err = h.Carts.AddItem(ctx, cart.ID, cartsvc.AddItemInput{
			ProductID:   req.ProductID,
			AttributeID: req.AttributeID,
			Quantity:    req.Quantity,
			UnitPrice:   *req.UnitPrice,
		})
	case req.AttributeID != nil:
		err = h.Carts.AddProduct(ctx, cart.ID, req.ProductID, *req.AttributeID, req.Quantity)
	default:
		badRequest(c, "attributeId required")
		return
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.reloadCart(c, cart.ID, http.StatusCreated)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return
	}
	owned := false
	for _, it := range cart.Items {
		if it.ID == itemID {
			owned = true
			break
		}
	}
	if !owned {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
		return
	}
	if _, err := h.Carts.RemoveItem(c.Request.Context(), itemID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.reloadCart(c, cart.ID, http.StatusOK)
}

func (h *handlers) setCartNote(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	var note json.RawMessage
	if err := c.ShouldBindJSON(&note); err != nil {
		badRequest(c, "note must be valid JSON")
		return
	}
	if err := h.Carts.AddNote(c.Request.Context(), cart.ID, note); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ownedCart loads the :id cart. Callers other than admins only see carts
// they own; anything else is reported as not found.
func (h *handlers) ownedCart(c *gin.Context) (*domain.Cart, bool) {
	cartID, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	id := identityOf(c)
	filter := domain.CartFilter{ID: &cartID}
	if !id.Admin() {
		owner := id.Owner()
		if owner.IsZero() {
			writeError(c, h.logger, domain.ErrCartNotFound)
			return nil, false
		}
		filter.UserID, filter.SessionID = owner.UserID, owner.SessionID
	}
	cart, err := h.Carts.Load(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return nil, false
	}
	return cart, true
}

func (h *handlers) reloadCart(c *gin.Context, cartID int64, status int) {
	cart, err := h.Carts.Load(c.Request.Context(), domain.CartFilter{ID: &cartID})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.writeCart(c, status, cart)
}

func (h *handlers) writeCart(c *gin.Context, status int, cart *domain.Cart) {
	summary, err := h.Carts.Summarize(c.Request.Context(), cart)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(status, summary)
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
