// README: Shared handler utilities: actor extraction, JSON, error mapping.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gelis/internal/http/middleware"
	"gelis/internal/modules/cart"
	"gelis/internal/modules/driver"
	"gelis/internal/modules/order"
	"gelis/internal/modules/warung"
	"gelis/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func actorFrom(c *gin.Context) (order.Actor, bool) {
	role := order.Role(c.GetString(middleware.ActorRoleKey))
	id := types.ID(c.GetString(middleware.ActorIDKey))
	switch role {
	case order.RoleCustomer, order.RolePartner, order.RoleDriver, order.RoleAdmin:
	default:
		return order.Actor{}, false
	}
	if id == "" {
		return order.Actor{}, false
	}
	return order.Actor{Role: role, ID: id}, true
}

// listLimit reads the ?limit query, defaulting to 50 and capping at 500.
func listLimit(c *gin.Context) int {
	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	return limit
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps the error taxonomy onto HTTP once, here.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, cart.ErrBadRequest),
		errors.Is(err, driver.ErrInvalidStatus):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, driver.ErrNotFound),
		errors.Is(err, warung.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrForbidden), errors.Is(err, driver.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrConflict),
		errors.Is(err, driver.ErrConflict), errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrWarungClosed):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrStoreUnavailable):
		writeError(c, http.StatusServiceUnavailable, "store unavailable")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
