// README: Order lifecycle handlers: checkout, confirm, accept/reject, advance, cancel.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gelis/internal/modules/cart"
	"gelis/internal/modules/dispatch"
	"gelis/internal/modules/order"
	"gelis/internal/modules/warung"
	"gelis/internal/types"
)

type OrderHandler struct {
	orders   *order.Service
	carts    *cart.Service
	dispatch *dispatch.Service
	warungs  warung.Store
}

func NewOrderHandler(orders *order.Service, carts *cart.Service, dispatchSvc *dispatch.Service, warungs warung.Store) *OrderHandler {
	return &OrderHandler{orders: orders, carts: carts, dispatch: dispatchSvc, warungs: warungs}
}

type checkoutRequest struct {
	WarungID         string `json:"warungId" binding:"required"`
	DeliveryAddress  string `json:"deliveryAddress" binding:"required"`
	EstimatedMinutes int    `json:"estimatedTimeMinutes"`
}

// Checkout converts the caller's cart into a pending order.
func (h *OrderHandler) Checkout(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok || actor.Role != order.RoleCustomer {
		writeError(c, http.StatusForbidden, "customer actor required")
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	orderID, err := h.carts.Checkout(c.Request.Context(), cart.CheckoutCommand{
		CustomerID:       actor.ID,
		WarungID:         types.ID(req.WarungID),
		DeliveryAddress:  req.DeliveryAddress,
		EstimatedMinutes: req.EstimatedMinutes,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"orderId": orderID, "status": order.StatusPending})
}

// ListMine returns the calling customer's order history, newest first.
func (h *OrderHandler) ListMine(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok || actor.Role != order.RoleCustomer {
		writeError(c, http.StatusForbidden, "customer actor required")
		return
	}
	orders, err := h.orders.ListByCustomer(c.Request.Context(), actor.ID, listLimit(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

// ListForWarung is the partner's incoming-orders view. Only the warung's
// owner or an admin may read it.
func (h *OrderHandler) ListForWarung(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		writeError(c, http.StatusForbidden, "actor required")
		return
	}
	warungID := types.ID(c.Param("id"))
	if actor.Role != order.RoleAdmin {
		w, err := h.warungs.Get(c.Request.Context(), warungID)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		if actor.Role != order.RolePartner || actor.ID != w.OwnerID {
			writeError(c, http.StatusForbidden, "warung owner or admin required")
			return
		}
	}
	orders, err := h.orders.ListByWarung(c.Request.Context(), warungID, listLimit(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

// Confirm is the partner's edge that hands the order to dispatch.
func (h *OrderHandler) Confirm(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		writeError(c, http.StatusForbidden, "actor required")
		return
	}
	err := h.dispatch.ConfirmOrder(c.Request.Context(), types.ID(c.Param("id")), actor)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusConfirmed})
}

func (h *OrderHandler) Accept(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok || actor.Role != order.RoleDriver {
		writeError(c, http.StatusForbidden, "driver actor required")
		return
	}
	err := h.dispatch.Accept(c.Request.Context(), types.ID(c.Param("id")), actor.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusPreparing})
}

func (h *OrderHandler) Reject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok || actor.Role != order.RoleDriver {
		writeError(c, http.StatusForbidden, "driver actor required")
		return
	}
	err := h.dispatch.Reject(c.Request.Context(), types.ID(c.Param("id")), actor.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"released": true})
}

type advanceRequest struct {
	Status string `json:"status" binding:"required"`
}

// Advance applies one forward edge on behalf of the calling actor.
func (h *OrderHandler) Advance(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		writeError(c, http.StatusForbidden, "actor required")
		return
	}
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	target := order.Status(req.Status)
	err := h.dispatch.AdvanceStatus(c.Request.Context(), types.ID(c.Param("id")), target, actor)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": target})
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		writeError(c, http.StatusForbidden, "actor required")
		return
	}
	err := h.dispatch.CancelOrder(c.Request.Context(), types.ID(c.Param("id")), actor)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusCancelled})
}
