package httpserver

import (
	"context"
	"net/http"

	"commerce-backoffice/internal/domain"
	"github.com/gin-gonic/gin"
)

type beginCheckoutRequest struct {
	CartID int64 `json:"cartId" binding:"required"`
}

func (h *handlers) beginCheckout(c *gin.Context) {
	var req beginCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "cartId required")
		return
	}
	if !h.canUseCart(c, req.CartID) {
		return
	}
	handle, err := h.Checkout.BeginCheckout(c.Request.Context(), req.CartID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"handle": handle})
}

func (h *handlers) getCheckout(c *gin.Context) {
	handle, draft, ok := h.ownedDraft(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"handle": handle, "draft": draft})
}

func (h *handlers) setBilling(c *gin.Context) {
	h.setAddress(c, h.Checkout.AppendBillingAddress)
}

func (h *handlers) setShipping(c *gin.Context) {
	h.setAddress(c, h.Checkout.AppendShippingAddress)
}

func (h *handlers) setAddress(c *gin.Context, apply func(ctx context.Context, handle int64, addr domain.Address) error) {
	handle, _, ok := h.ownedDraft(c)
	if !ok {
		return
	}
	var addr domain.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		badRequest(c, "fullName, addressLine1, city and country are required")
		return
	}
	if err := apply(c.Request.Context(), handle, addr); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// commitCheckout persists the staged draft without a payment step. Only
// admins may place such manual orders.
func (h *handlers) commitCheckout(c *gin.Context) {
	if !identityOf(c).Admin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
		return
	}
	handle, ok := paramID(c, "handle")
	if !ok {
		return
	}
	orders, err := h.Checkout.Commit(c.Request.Context(), handle)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"orders": orders})
}

func (h *handlers) ownedDraft(c *gin.Context) (int64, *domain.CheckoutDraft, bool) {
	handle, ok := paramID(c, "handle")
	if !ok {
		return 0, nil, false
	}
	draft, err := h.Checkout.Load(c.Request.Context(), handle)
	if err != nil {
		writeError(c, h.logger, err)
		return 0, nil, false
	}
	if !h.canUseCart(c, draft.Cart.ID) {
		return 0, nil, false
	}
	return handle, draft, true
}

// canUseCart reports whether the caller owns cartID or is an admin, and
// writes the error response when not.
func (h *handlers) canUseCart(c *gin.Context, cartID int64) bool {
	id := identityOf(c)
	if id.Admin() {
		return true
	}
	owner := id.Owner()
	if owner.IsZero() {
		writeError(c, h.logger, domain.ErrCartNotFound)
		return false
	}
	_, err := h.Carts.Load(c.Request.Context(), domain.CartFilter{ID: &cartID, UserID: owner.UserID, SessionID: owner.SessionID})
	if err != nil {
		writeError(c, h.logger, err)
		return false
	}
	return true
}
