package users

import (
	"github.com/gin-gonic/gin"

	"communifund/platform-backend/internal/auth"
)

// RegisterRoutes registers user account routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, mw *auth.Middleware) {
	users := router.Group("/users")
	{
		users.POST("/send-otp", h.sendVerificationOTP)
		users.POST("/register", h.register)
		users.POST("/login", h.login)
		users.POST("/refresh", h.refresh)

		authed := users.Group("", mw.RequireUser())
		{
			authed.GET("/me", h.me)
			authed.POST("/logout", h.logout)
		}
	}
}
