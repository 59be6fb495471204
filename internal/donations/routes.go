package donations

import (
	"github.com/gin-gonic/gin"

	"communifund/platform-backend/internal/auth"
)

// RegisterRoutes registers donation routes. All require an authenticated donor.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, mw *auth.Middleware) {
	donations := router.Group("/donations", mw.RequireUser())
	{
		donations.POST("/order", h.createOrder)
		donations.POST("/confirm", h.confirm)
		donations.GET("/:id/receipt", h.receipt)
	}
}
