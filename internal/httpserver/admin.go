package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"commerce-backoffice/internal/domain"
	paymentrepo "commerce-backoffice/internal/repository/payment"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.Orders.List(c.Request.Context(), c.Query("store"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status required")
		return
	}
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	o, err := h.Orders.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) sendInvoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Orders.SendInvoice(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *handlers) deleteOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Orders.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) orderSummary(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.DefaultQuery("month", "0"))
	rows, err := h.Orders.Summary(c.Request.Context(), domain.OrderSummaryFilter{
		Year:   year,
		Month:  month,
		Status: domain.OrderStatus(strings.ToLower(c.Query("status"))),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *handlers) orderPayments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	payments, err := h.Payments.ByOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *handlers) orderPayLater(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pl, err := h.Payments.PayLater(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pl)
}

func (h *handlers) listPayments(c *gin.Context) {
	q := paymentrepo.Query{
		Currency: strings.ToUpper(c.Query("currency")),
		Method:   c.Query("method"),
		StoreID:  c.Query("store"),
	}
	if raw := c.Query("order"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid order")
			return
		}
		q.OrderID = id
	}
	payments, err := h.Payments.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *handlers) getPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := h.Payments.Get(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp := gin.H{"payment": p}
	if detail, err := h.Payments.Detail(ctx, id); err == nil {
		resp["detail"] = detail
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) paymentByTransaction(c *gin.Context) {
	p, err := h.Payments.ByTransaction(c.Request.Context(), c.Param("tx"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// refundPayment refunds amount, or the whole payment when amount is zero
// or omitted.
func (h *handlers) refundPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req refundRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid amount")
			return
		}
	}
	p, res, err := h.Payments.Refund(c.Request.Context(), id, req.Amount)
	h.writeReversal(c, p, res.OK(), res.Message, err)
}

func (h *handlers) voidPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, res, err := h.Payments.Void(c.Request.Context(), id)
	h.writeReversal(c, p, res.OK(), res.Message, err)
}

func (h *handlers) writeReversal(c *gin.Context, p *domain.Payment, ok bool, message string, err error) {
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"payment": p, "error": message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}

func (h *handlers) listCarts(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		carts []domain.Cart
		err   error
	)
	if c.Query("nonEmpty") == "true" {
		carts, err = h.Carts.ListNonEmpty(ctx)
	} else {
		carts, err = h.Carts.List(ctx)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"carts": carts})
}

func (h *handlers) removeEmptyCarts(c *gin.Context) {
	n, err := h.Carts.RemoveEmpty(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (h *handlers) clearCart(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Carts.Clear(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) removeItemsByProduct(c *gin.Context) {
	id, ok := paramID(c, "productId")
	if !ok {
		return
	}
	n, err := h.Carts.RemoveItemByProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (h *handlers) removeItemsByAttribute(c *gin.Context) {
	id, ok := paramID(c, "attributeId")
	if !ok {
		return
	}
	n, err := h.Carts.RemoveItemByAttribute(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (h *handlers) remindCarts(c *gin.Context) {
	ctx := c.Request.Context()
	carts, err := h.Carts.ListNonEmpty(ctx)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	sent, err := h.Reminders.RemindCarts(ctx, carts)
	if err != nil {
		h.logger.Warn().Err(err).Int("sent", sent).Msg("httpserver: some cart reminders failed")
		c.JSON(http.StatusMultiStatus, gin.H{"sent": sent, "error": "some reminders failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

func (h *handlers) listRates(c *gin.Context) {
	tables, err := h.Rates.Tables(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

func (h *handlers) getRates(c *gin.Context) {
	table, err := h.Rates.Table(c.Request.Context(), strings.ToUpper(c.Param("base")))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *handlers) refreshRates(c *gin.Context) {
	base := strings.ToUpper(c.DefaultQuery("base", h.Rates.Base()))
	refreshed, err := h.Rates.RefreshIfDue(c.Request.Context(), base)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"base": base, "refreshed": refreshed})
}

func (h *handlers) clearStaging(c *gin.Context) {
	if err := h.Staging.Clear(c.Request.Context()); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type priceRequest struct {
	BasePrice decimal.Decimal `json:"basePrice"`
	Discount  decimal.Decimal `json:"discount"`
	Currency  string          `json:"currency" binding:"required"`
	StoreID   string          `json:"storeId"`
}

func (h *handlers) getPrice(c *gin.Context) {
	id, ok := paramID(c, "attributeId")
	if !ok {
		return
	}
	p, err := h.Prices.Load(c.Request.Context(), id, c.Query("store"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) upsertPrice(c *gin.Context) {
	id, ok := paramID(c, "attributeId")
	if !ok {
		return
	}
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "currency required")
		return
	}
	p := h.Prices.Build(id, req.BasePrice, strings.ToUpper(req.Currency), req.Discount, req.StoreID)
	if err := h.Prices.Save(c.Request.Context(), p); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) deletePrice(c *gin.Context) {
	id, ok := paramID(c, "attributeId")
	if !ok {
		return
	}
	if err := h.Prices.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
