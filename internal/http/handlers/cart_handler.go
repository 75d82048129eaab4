// README: Cart handlers; every mutation returns the updated cart summary.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gelis/internal/modules/cart"
	"gelis/internal/modules/order"
	"gelis/internal/types"
)

type CartHandler struct {
	carts *cart.Service
}

func NewCartHandler(carts *cart.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

type cartItemRequest struct {
	ProductID       string `json:"productId" binding:"required"`
	Quantity        int    `json:"quantity"`
	UnitPrice       int64  `json:"unitPrice"`
	SelectedOptions string `json:"selectedOptions"`
}

func (h *CartHandler) customer(c *gin.Context) (types.ID, bool) {
	actor, ok := actorFrom(c)
	if !ok || actor.Role != order.RoleCustomer {
		writeError(c, http.StatusForbidden, "customer actor required")
		return "", false
	}
	return actor.ID, true
}

func (h *CartHandler) Add(c *gin.Context) {
	customerID, ok := h.customer(c)
	if !ok {
		return
	}
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	lines, err := h.carts.Add(c.Request.Context(), customerID, cart.Line{
		ProductID:       types.ID(req.ProductID),
		Quantity:        req.Quantity,
		UnitPrice:       types.Rupiah(req.UnitPrice),
		SelectedOptions: req.SelectedOptions,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeCart(c, lines)
}

func (h *CartHandler) SetQuantity(c *gin.Context) {
	customerID, ok := h.customer(c)
	if !ok {
		return
	}
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	lines, err := h.carts.SetQuantity(c.Request.Context(), customerID,
		types.ID(req.ProductID), req.SelectedOptions, req.Quantity)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeCart(c, lines)
}

func (h *CartHandler) Remove(c *gin.Context) {
	customerID, ok := h.customer(c)
	if !ok {
		return
	}
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	lines, err := h.carts.Remove(c.Request.Context(), customerID,
		types.ID(req.ProductID), req.SelectedOptions)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeCart(c, lines)
}

func (h *CartHandler) Get(c *gin.Context) {
	customerID, ok := h.customer(c)
	if !ok {
		return
	}
	lines, err := h.carts.Lines(c.Request.Context(), customerID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeCart(c, lines)
}

func writeCart(c *gin.Context, lines []cart.Line) {
	if lines == nil {
		lines = []cart.Line{}
	}
	writeJSON(c, http.StatusOK, gin.H{
		"items": lines,
		"total": cart.Total(lines).Amount,
		"count": cart.Count(lines),
	})
}
