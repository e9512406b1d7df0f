// Package api exposes the JSON HTTP API consumed by the web front end.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"smartlink/internal/auth"
	"smartlink/internal/service"
)

// Deps are the collaborators the HTTP layer routes to.
type Deps struct {
	Auth       *auth.Service
	Links      *service.LinkService
	Categories *service.CategoryService
	Tags       *service.TagService
	Analyzer   Analyzer
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, logger logrus.FieldLogger) *gin.Engine {
	log := logger.WithField("component", "api")

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := NewAuthHandler(deps.Auth, log)
	linkHandler := NewLinkHandler(deps.Links, deps.Tags, deps.Analyzer, log)
	categoryHandler := NewCategoryHandler(deps.Categories, deps.Tags, log)
	adminHandler := NewAdminHandler(deps.Auth, log)

	api := router.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(requireSession(deps.Auth, log))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/auth/me", authHandler.Me)

	protected.POST("/analyze", linkHandler.Analyze)

	links := protected.Group("/links")
	links.GET("", linkHandler.List)
	links.POST("", linkHandler.Create)
	links.GET("/:id", linkHandler.Get)
	links.PATCH("/:id", linkHandler.Update)
	links.DELETE("/:id", linkHandler.Delete)
	links.POST("/:id/favorite", linkHandler.ToggleFavorite)
	links.POST("/:id/archive", linkHandler.ToggleArchive)
	links.POST("/:id/view", linkHandler.View)
	links.GET("/:id/tags", linkHandler.ListTags)
	links.POST("/:id/tags", linkHandler.AttachTag)
	links.DELETE("/:id/tags/:tagId", linkHandler.DetachTag)

	categories := protected.Group("/categories")
	categories.GET("", categoryHandler.List)
	categories.POST("", categoryHandler.Create)
	categories.POST("/reorder", categoryHandler.Reorder)
	categories.PATCH("/:id", categoryHandler.Update)
	categories.DELETE("/:id", categoryHandler.Delete)

	tags := protected.Group("/tags")
	tags.GET("", categoryHandler.ListTags)
	tags.POST("", categoryHandler.CreateTag)
	tags.DELETE("/:id", categoryHandler.DeleteTag)

	admin := protected.Group("/admin/users")
	admin.Use(requireAdmin())
	admin.GET("", adminHandler.ListUsers)
	admin.POST("/:id/activate", adminHandler.Activate)
	admin.POST("/:id/deactivate", adminHandler.Deactivate)
	admin.POST("/:id/role", adminHandler.SetRole)
	admin.DELETE("/:id", adminHandler.DeleteUser)

	return router
}
