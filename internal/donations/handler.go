package donations

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/auth"
)

// Handler handles HTTP requests for donations
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) createOrder(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, h.logger, apierr.Validation("Invalid request body", nil))
		return
	}

	donation, err := h.service.CreateOrder(c.Request.Context(), auth.SubjectID(c), req)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Donation order created",
		"donation": donation,
	})
}

func (h *Handler) confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, h.logger, apierr.Validation("Invalid request body", nil))
		return
	}

	donation, err := h.service.Confirm(c.Request.Context(), auth.SubjectID(c), req)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Donation confirmed successfully",
		"donation": donation,
	})
}

func (h *Handler) receipt(c *gin.Context) {
	pdf, err := h.service.Receipt(c.Request.Context(), auth.SubjectID(c), c.Param("id"))
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", c.Param("id")))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
