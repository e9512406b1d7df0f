package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"smartlink/internal/service"
)

// CategoryHandler serves the category and tag endpoints.
type CategoryHandler struct {
	categories *service.CategoryService
	tags       *service.TagService
	log        logrus.FieldLogger
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(categories *service.CategoryService, tags *service.TagService, logger logrus.FieldLogger) *CategoryHandler {
	return &CategoryHandler{categories: categories, tags: tags, log: logger}
}

// List handles GET /api/categories.
func (h *CategoryHandler) List(c *gin.Context) {
	list, err := h.categories.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nonNil(list)})
}

// Create handles POST /api/categories.
func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	category, err := h.categories.Create(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": category})
}

// Update handles PATCH /api/categories/:id.
func (h *CategoryHandler) Update(c *gin.Context) {
	var req service.CategoryUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	category, err := h.categories.Update(c.Request.Context(), currentUser(c).ID, c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": category})
}

// Delete handles DELETE /api/categories/:id.
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.categories.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reorder handles POST /api/categories/reorder.
func (h *CategoryHandler) Reorder(c *gin.Context) {
	var req struct {
		Orders []service.CategoryOrder `json:"orders" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := h.categories.Reorder(c.Request.Context(), currentUser(c).ID, req.Orders); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTags handles GET /api/tags.
func (h *CategoryHandler) ListTags(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nonNil(tags)})
}

// CreateTag handles POST /api/tags.
func (h *CategoryHandler) CreateTag(c *gin.Context) {
	var req service.TagInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	tag, err := h.tags.Create(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": tag})
}

// DeleteTag handles DELETE /api/tags/:id.
func (h *CategoryHandler) DeleteTag(c *gin.Context) {
	if err := h.tags.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
