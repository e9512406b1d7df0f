package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"smartlink/internal/auth"
	"smartlink/internal/domain"
)

const (
	userKey    = "user"
	sessionKey = "session"
)

// requireSession resolves the bearer token to a user or aborts with 401.
func requireSession(authSvc *auth.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "no_session", "missing bearer token")
			return
		}

		res, err := authSvc.Validate(c.Request.Context(), token)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.Set(userKey, res.User)
		c.Set(sessionKey, res.Session)
		c.Next()
	}
}

// requireAdmin must run after requireSession.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c).Role != domain.RoleAdmin {
			abortWithError(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// currentUser returns the user set by requireSession.
func currentUser(c *gin.Context) *domain.User {
	return c.MustGet(userKey).(*domain.User)
}

func currentSession(c *gin.Context) *domain.Session {
	return c.MustGet(sessionKey).(*domain.Session)
}

func ginLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        path,
			"status_code": c.Writer.Status(),
			"client_ip":   c.ClientIP(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("HTTP request")
	}
}
