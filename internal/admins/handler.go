package admins

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/auth"
	"communifund/platform-backend/internal/donations"
	"communifund/platform-backend/internal/notifications"
	"communifund/platform-backend/internal/projects"
)

// Handler handles HTTP requests for the admin surface
type Handler struct {
	service Service
	hub     *notifications.Hub
	logger  *zap.Logger
}

func NewHandler(service Service, hub *notifications.Hub, logger *zap.Logger) *Handler {
	return &Handler{service: service, hub: hub, logger: logger}
}

func (h *Handler) getInt64Param(c *gin.Context, name string, fallback int64) int64 {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			return v
		}
	}
	return fallback
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
		"message":     "Admin registered successfully",
		"accessToken": result.Tokens.AccessToken,
		"data":        result.Admin,
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
		"data":        result.Admin,
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
	admin, err := h.service.GetByID(c.Request.Context(), auth.SubjectID(c))
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": admin})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), auth.SubjectID(c)); err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	auth.ClearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (h *Handler) listProjects(c *gin.Context) {
	filter := projects.Filter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Page:     h.getInt64Param(c, "page", 1),
		Limit:    h.getInt64Param(c, "limit", 10),
	}

	results, pagination, err := h.service.ListProjects(c.Request.Context(), filter)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"projects":   results,
		"pagination": pagination,
	})
}

func (h *Handler) validateProject(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, h.logger, apierr.Validation("Invalid request body", nil))
		return
	}

	project, err := h.service.ValidateProject(c.Request.Context(), auth.SubjectID(c), c.Param("id"), req)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Project %s successfully", project.Status),
		"project": project,
	})
}

func (h *Handler) listDonations(c *gin.Context) {
	filter := donations.Filter{
		ProjectID: c.Query("projectId"),
		Status:    c.Query("status"),
		Page:      h.getInt64Param(c, "page", 1),
		Limit:     h.getInt64Param(c, "limit", 20),
	}

	results, pagination, totalAmount, err := h.service.ListDonations(c.Request.Context(), filter)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"donations":   results,
		"totalAmount": totalAmount,
		"pagination":  pagination,
	})
}

func (h *Handler) projectStats(c *gin.Context) {
	stats, err := h.service.ProjectStats(c.Request.Context())
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

func (h *Handler) donationStats(c *gin.Context) {
	stats, err := h.service.DonationStats(c.Request.Context())
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

func (h *Handler) exportDonations(c *gin.Context) {
	filter := donations.Filter{
		ProjectID: c.Query("projectId"),
		Status:    c.Query("status"),
	}
	format := c.DefaultQuery("format", "csv")

	data, contentType, err := h.service.ExportDonations(c.Request.Context(), filter, format)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("donations-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) runVerification(c *gin.Context) {
	result, err := h.service.RunBulkVerification(c.Request.Context())
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bulk verification completed",
		"data":    result,
	})
}

func (h *Handler) events(c *gin.Context) {
	if err := h.hub.HandleConnection(c.Writer, c.Request); err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}
