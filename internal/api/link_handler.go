package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
	"smartlink/internal/service"
)

// Analyzer runs the fetch and analysis pipeline for a URL.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*domain.LinkAnalysis, error)
}

// LinkHandler serves the link endpoints.
type LinkHandler struct {
	links    *service.LinkService
	tags     *service.TagService
	analyzer Analyzer
	log      logrus.FieldLogger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(links *service.LinkService, tags *service.TagService, analyzer Analyzer, logger logrus.FieldLogger) *LinkHandler {
	return &LinkHandler{links: links, tags: tags, analyzer: analyzer, log: logger}
}

// CreateLinkRequest is the body of POST /api/links. With Enrich set the
// server fetches and analyzes the URL itself.
type CreateLinkRequest struct {
	service.CreateRequest
	Enrich bool `json:"enrich"`
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

// listQuery is the query string of GET /api/links.
type listQuery struct {
	CategoryID  string `form:"category_id"`
	Favorite    *bool  `form:"favorite"`
	Archived    *bool  `form:"archived"`
	ContentType string `form:"content_type"`
	Search      string `form:"search"`
	TagIDs      string `form:"tag_ids"`
	Sort        string `form:"sort"`
	Order       string `form:"order"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// Analyze handles POST /api/analyze. Failures are returned, nothing is saved.
func (h *LinkHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": analysis})
}

// Create handles POST /api/links. An enrichment failure does not fail the
// request; it is reported as analysis_error next to the created link.
func (h *LinkHandler) Create(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var link *domain.Link
	var err error
	userID := currentUser(c).ID
	if req.Enrich {
		link, err = h.links.CreateWithEnrichment(c.Request.Context(), userID, req.CreateRequest)
	} else {
		link, err = h.links.Apply(c.Request.Context(), userID, "", req.CreateRequest)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	body := gin.H{"data": link}
	if link.AnalysisError != "" {
		body["analysis_error"] = link.AnalysisError
	}
	c.JSON(http.StatusCreated, body)
}

// List handles GET /api/links.
func (h *LinkHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order := domain.DefaultLinkSort
	if q.Sort != "" {
		switch f := domain.SortField(q.Sort); f {
		case domain.SortByCreatedAt, domain.SortByUpdatedAt, domain.SortByViewCount, domain.SortByTitle:
			order.Field = f
		default:
			abortWithError(c, http.StatusBadRequest, "invalid_request", "unknown sort field "+q.Sort)
			return
		}
	}
	switch q.Order {
	case "", "desc":
		order.Desc = true
	case "asc":
		order.Desc = false
	default:
		abortWithError(c, http.StatusBadRequest, "invalid_request", "order must be asc or desc")
		return
	}

	filter := domain.LinkFilter{
		CategoryID:  q.CategoryID,
		IsFavorite:  q.Favorite,
		IsArchived:  q.Archived,
		ContentType: q.ContentType,
		Search:      q.Search,
	}
	for _, id := range strings.Split(q.TagIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			filter.TagIDs = append(filter.TagIDs, id)
		}
	}

	page, err := h.links.List(c.Request.Context(), currentUser(c).ID, filter, order, domain.Page{Page: q.Page, PageSize: q.PageSize})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /api/links/:id.
func (h *LinkHandler) Get(c *gin.Context) {
	link, err := h.links.Get(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	h.respondLink(c, link, err)
}

// Update handles PATCH /api/links/:id.
func (h *LinkHandler) Update(c *gin.Context) {
	var req service.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	link, err := h.links.Apply(c.Request.Context(), currentUser(c).ID, c.Param("id"), req)
	h.respondLink(c, link, err)
}

// Delete handles DELETE /api/links/:id.
func (h *LinkHandler) Delete(c *gin.Context) {
	if err := h.links.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleFavorite handles POST /api/links/:id/favorite.
func (h *LinkHandler) ToggleFavorite(c *gin.Context) {
	link, err := h.links.ToggleFavorite(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	h.respondLink(c, link, err)
}

// ToggleArchive handles POST /api/links/:id/archive.
func (h *LinkHandler) ToggleArchive(c *gin.Context) {
	link, err := h.links.ToggleArchive(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	h.respondLink(c, link, err)
}

// View handles POST /api/links/:id/view.
func (h *LinkHandler) View(c *gin.Context) {
	link, err := h.links.IncrementView(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	h.respondLink(c, link, err)
}

// ListTags handles GET /api/links/:id/tags.
func (h *LinkHandler) ListTags(c *gin.Context) {
	tags, err := h.tags.ForLink(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nonNil(tags)})
}

// AttachTag handles POST /api/links/:id/tags with body {"tag_id": "..."}.
func (h *LinkHandler) AttachTag(c *gin.Context) {
	var req struct {
		TagID string `json:"tag_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := h.tags.Attach(c.Request.Context(), currentUser(c).ID, c.Param("id"), req.TagID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DetachTag handles DELETE /api/links/:id/tags/:tagId.
func (h *LinkHandler) DetachTag(c *gin.Context) {
	if err := h.tags.Detach(c.Request.Context(), currentUser(c).ID, c.Param("id"), c.Param("tagId")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LinkHandler) respondLink(c *gin.Context, link *domain.Link, err error) {
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": link})
}

// nonNil keeps empty lists serialized as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
