package projects

import (
	"github.com/gin-gonic/gin"

	"communifund/platform-backend/internal/auth"
)

// RegisterRoutes registers project routes. Listing and detail are public;
// mutations require an authenticated creator.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, mw *auth.Middleware) {
	projects := router.Group("/projects")
	{
		projects.GET("", h.list)
		projects.GET("/search", h.search)
		projects.GET("/:id", h.get)

		authed := projects.Group("", mw.RequireUser())
		{
			authed.POST("", h.create)
			authed.PUT("/:id", h.update)
			authed.DELETE("/:id", h.delete)
			authed.POST("/:id/images", h.uploadImage)
		}
	}
}
