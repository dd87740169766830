package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	paymentsvc "commerce-backoffice/internal/service/payment"
	"github.com/gin-gonic/gin"
)

type gatewayResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Logos       []string `json:"logos"`
}

func (h *handlers) listGateways(c *gin.Context) {
	enabled := h.Gateways.Enabled()
	out := make([]gatewayResponse, 0, len(enabled))
	for _, g := range enabled {
		out = append(out, gatewayResponse{ID: g.ID(), Name: g.Name(), Description: g.Description(), Logos: g.Logos()})
	}
	c.JSON(http.StatusOK, gin.H{"gateways": out})
}

func (h *handlers) gatewayForm(c *gin.Context) {
	g, err := h.Gateways.Get(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	cartID, err := strconv.ParseInt(c.Query("cartId"), 10, 64)
	if err != nil || cartID <= 0 {
		badRequest(c, "cartId required")
		return
	}
	if !h.canUseCart(c, cartID) {
		return
	}
	quote, err := h.Checkout.QuoteCart(c.Request.Context(), cartID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	html, err := g.PaymentForm(paymentsvc.FormOptions{
		Action:   "/payments/" + g.ID(),
		CartID:   cartID,
		Currency: quote.Currency,
		Amount:   quote.Total,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// processPayment accepts the gateway payload as JSON or as a posted form.
// Validation failures and declines answer 422 with the outcome's errors.
func (h *handlers) processPayment(c *gin.Context) {
	g, err := h.Gateways.Get(c.Param("gateway"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	data, err := paymentData(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if cartID, err := strconv.ParseInt(data.Get("cart_id"), 10, 64); err == nil && cartID > 0 {
		if !h.canUseCart(c, cartID) {
			return
		}
	}
	outcome, err := g.ProcessPayment(c.Request.Context(), data)
	if err != nil && outcome == nil {
		writeError(c, h.logger, err)
		return
	}
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("gateway", g.ID()).Msg("httpserver: payment processing failed")
		}
		c.AbortWithStatusJSON(status, outcome)
		return
	}
	if !outcome.Success {
		c.JSON(http.StatusUnprocessableEntity, outcome)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

func paymentData(c *gin.Context) (paymentsvc.Data, error) {
	data := paymentsvc.Data{}
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&data); err != nil {
			return nil, errors.New("payment data must be a flat JSON object of strings")
		}
		return data, nil
	}
	if err := c.Request.ParseForm(); err != nil {
		return nil, errors.New("invalid form body")
	}
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			data[k] = v[0]
		}
	}
	return data, nil
}
