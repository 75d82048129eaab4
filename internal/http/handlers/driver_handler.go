// README: Driver availability handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gelis/internal/modules/driver"
	"gelis/internal/modules/order"
	"gelis/internal/types"
)

type DriverHandler struct {
	drivers *driver.Service
}

func NewDriverHandler(drivers *driver.Service) *DriverHandler {
	return &DriverHandler{drivers: drivers}
}

type availabilityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// SetAvailability toggles a driver between available and offline. Drivers may
// only toggle themselves; admins may toggle anyone. Busy is never settable
// over HTTP.
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		writeError(c, http.StatusForbidden, "actor required")
		return
	}
	driverID := types.ID(c.Param("id"))
	switch actor.Role {
	case order.RoleAdmin:
	case order.RoleDriver:
		if actor.ID != driverID {
			writeError(c, http.StatusForbidden, "drivers may only toggle themselves")
			return
		}
	default:
		writeError(c, http.StatusForbidden, "driver or admin actor required")
		return
	}
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.drivers.SetAvailability(c.Request.Context(), driverID, *req.Online); err != nil {
		writeDomainError(c, err)
		return
	}
	d, err := h.drivers.Get(c.Request.Context(), driverID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": d.Status, "lastSeen": d.LastSeen})
}

func (h *DriverHandler) Get(c *gin.Context) {
	d, err := h.drivers.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}
