package admins

import (
	"github.com/gin-gonic/gin"

	"communifund/platform-backend/internal/auth"
)

// RegisterRoutes registers the admin surface. Register, login and refresh
// are public; everything else requires an admin access token.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, mw *auth.Middleware) {
	admin := router.Group("/admin")
	{
		admin.POST("/register", h.register)
		admin.POST("/login", h.login)
		admin.POST("/refresh", h.refresh)

		authed := admin.Group("", mw.RequireAdmin())
		{
			authed.GET("/me", h.me)
			authed.POST("/logout", h.logout)

			authed.GET("/projects", h.listProjects)
			authed.PATCH("/projects/:id/validate", h.validateProject)

			authed.GET("/donations", h.listDonations)
			authed.GET("/donations/export", h.exportDonations)

			authed.GET("/stats/projects", h.projectStats)
			authed.GET("/stats/donations", h.donationStats)

			authed.POST("/verification/run", h.runVerification)

			authed.GET("/events", h.events)
		}
	}
}
