package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listProducts(c *gin.Context) {
	admin := identityOf(c).Admin()
	products, err := h.Catalog.List(c.Request.Context(), c.Query("store"), admin && c.Query("inactive") == "true")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *handlers) getProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	currency := strings.ToUpper(c.Query("currency"))
	listing, err := h.Catalog.Get(c.Request.Context(), id, currency, identityOf(c).Admin())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}
