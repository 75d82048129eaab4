// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gelis/internal/http/handlers"
	"gelis/internal/http/middleware"
	"gelis/internal/modules/cart"
	"gelis/internal/modules/dispatch"
	"gelis/internal/modules/driver"
	"gelis/internal/modules/order"
	"gelis/internal/modules/warung"
)

type RouterDeps struct {
	Orders   *order.Service
	Carts    *cart.Service
	Drivers  *driver.Service
	Dispatch *dispatch.Service
	Warungs  warung.Store
}

func NewRouter(deps RouterDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Actor(), middleware.Logging())

	cartHandler := handlers.NewCartHandler(deps.Carts)
	r.GET("/api/carts", cartHandler.Get)
	r.POST("/api/carts/items", cartHandler.Add)
	r.PUT("/api/carts/items", cartHandler.SetQuantity)
	r.DELETE("/api/carts/items", cartHandler.Remove)

	orderHandler := handlers.NewOrderHandler(deps.Orders, deps.Carts, deps.Dispatch, deps.Warungs)
	r.POST("/api/orders", orderHandler.Checkout)
	r.GET("/api/orders", orderHandler.ListMine)
	r.GET("/api/orders/:id", orderHandler.Get)
	r.GET("/api/warungs/:id/orders", orderHandler.ListForWarung)
	r.POST("/api/orders/:id/confirm", orderHandler.Confirm)
	r.POST("/api/orders/:id/accept", orderHandler.Accept)
	r.POST("/api/orders/:id/reject", orderHandler.Reject)
	r.POST("/api/orders/:id/status", orderHandler.Advance)
	r.POST("/api/orders/:id/cancel", orderHandler.Cancel)

	driverHandler := handlers.NewDriverHandler(deps.Drivers)
	r.GET("/api/drivers/:id", driverHandler.Get)
	r.PUT("/api/drivers/:id/availability", driverHandler.SetAvailability)

	adminHandler := handlers.NewAdminHandler(deps.Orders, deps.Dispatch)
	r.GET("/api/admin/orders", adminHandler.ListRecent)
	r.GET("/api/admin/orders/awaiting", adminHandler.ListAwaiting)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
