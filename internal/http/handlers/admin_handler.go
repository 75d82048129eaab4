// README: Admin handlers: recent orders and the awaiting-driver surface.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gelis/internal/modules/dispatch"
	"gelis/internal/modules/order"
)

type AdminHandler struct {
	orders   *order.Service
	dispatch *dispatch.Service
}

func NewAdminHandler(orders *order.Service, dispatchSvc *dispatch.Service) *AdminHandler {
	return &AdminHandler{orders: orders, dispatch: dispatchSvc}
}

func (h *AdminHandler) require(c *gin.Context) bool {
	actor, ok := actorFrom(c)
	if !ok || actor.Role != order.RoleAdmin {
		writeError(c, http.StatusForbidden, "admin actor required")
		return false
	}
	return true
}

func (h *AdminHandler) ListRecent(c *gin.Context) {
	if !h.require(c) {
		return
	}
	orders, err := h.orders.ListRecent(c.Request.Context(), listLimit(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

// ListAwaiting surfaces orders stuck confirmed without a driver past the
// threshold, instead of letting the rescan loop retry invisibly.
func (h *AdminHandler) ListAwaiting(c *gin.Context) {
	if !h.require(c) {
		return
	}
	orders, err := h.dispatch.AwaitingDriver(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}
