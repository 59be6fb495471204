package projects

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/auth"
)

// Handler handles HTTP requests for projects
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) getInt64Param(c *gin.Context, name string, fallback int64) int64 {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func (h *Handler) create(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, h.logger, apierr.Validation("Invalid request body", nil))
		return
	}

	project, err := h.service.Create(c.Request.Context(), auth.SubjectID(c), req)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Project created successfully. AI auto-verification has been applied.",
		"project": project,
	})
}

func (h *Handler) list(c *gin.Context) {
	filter := Filter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Page:     h.getInt64Param(c, "page", 1),
		Limit:    h.getInt64Param(c, "limit", 10),
	}

	results, pagination, err := h.service.List(c.Request.Context(), filter)
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

func (h *Handler) get(c *gin.Context) {
	project, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "project": project})
}

func (h *Handler) search(c *gin.Context) {
	limit := int(h.getInt64Param(c, "limit", 10))

	results, err := h.service.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "projects": results})
}

func (h *Handler) update(c *gin.Context) {
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, h.logger, apierr.Validation("Invalid request body", nil))
		return
	}

	project, err := h.service.Update(c.Request.Context(), c.Param("id"), auth.SubjectID(c), req)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Project updated successfully",
		"project": project,
	})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), auth.SubjectID(c)); err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Project deleted successfully",
	})
}

func (h *Handler) uploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		apierr.Respond(c, h.logger, apierr.Validation("Image file is required", nil))
		return
	}
	defer file.Close()

	project, err := h.service.UploadImage(
		c.Request.Context(),
		c.Param("id"),
		auth.SubjectID(c),
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		apierr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Image uploaded successfully",
		"project": project,
	})
}
