package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/auth"
)

// Handler handles HTTP requests for donor/creator accounts
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) sendVerificationOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, h.logger, apierr.Validation("Email is required", nil))
		return
	}

	if err := h.service.SendVerificationOTP(c.Request.Context(), req.Email); err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Verification OTP sent successfully",
	})
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, h.logger, apierr.Validation("Invalid request body", nil))
		return
	}

	result, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	auth.SetAuthCookies(c, result.Tokens)
	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "User registered successfully",
		"accessToken": result.Tokens.AccessToken,
		"data":        result.User,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, h.logger, apierr.Validation("Email and password are required", nil))
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	auth.SetAuthCookies(c, result.Tokens)
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Login successful",
		"accessToken": result.Tokens.AccessToken,
		"data":        result.User,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	token := auth.RefreshTokenFromRequest(c)

	result, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	auth.SetAuthCookies(c, result.Tokens)
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"accessToken": result.Tokens.AccessToken,
	})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.service.GetByID(c.Request.Context(), auth.SubjectID(c))
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), auth.SubjectID(c)); err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	auth.ClearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}
