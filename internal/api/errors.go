package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"smartlink/internal/analyzer"
	"smartlink/internal/auth"
	"smartlink/internal/config"
	"smartlink/internal/scraper"
	"smartlink/internal/service"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: code, Message: message}})
}

// respondError maps a domain error onto a status code and error code.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var (
		validation *service.ValidationError
		input      *auth.InputError
		analysis   *analyzer.AnalysisError
		fetch      *scraper.FetchError
	)

	status, body := http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"}
	switch {
	case errors.As(err, &validation):
		status, body = http.StatusBadRequest, errorBody{Code: "validation_failed", Message: validation.Message, Field: validation.Field}
	case errors.As(err, &input):
		status, body = http.StatusBadRequest, errorBody{Code: "validation_failed", Message: input.Message, Field: input.Field}
	case errors.Is(err, service.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		status, body = http.StatusNotFound, errorBody{Code: "not_found", Message: "not found"}
	case errors.Is(err, service.ErrDuplicateURL):
		status, body = http.StatusConflict, errorBody{Code: "duplicate_url", Message: err.Error()}
	case errors.Is(err, service.ErrTagExists):
		status, body = http.StatusConflict, errorBody{Code: "tag_exists", Message: err.Error()}
	case errors.Is(err, auth.ErrSelfChange):
		status, body = http.StatusConflict, errorBody{Code: "self_change", Message: err.Error()}
	case errors.Is(err, auth.ErrEmailExists):
		status, body = http.StatusConflict, errorBody{Code: "email_exists", Message: err.Error()}
	case errors.Is(err, service.ErrSystemCategory):
		status, body = http.StatusForbidden, errorBody{Code: "system_category", Message: err.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, body = http.StatusUnauthorized, errorBody{Code: "invalid_credentials", Message: err.Error()}
	case errors.Is(err, auth.ErrInvalidSession):
		status, body = http.StatusUnauthorized, errorBody{Code: "invalid_session", Message: err.Error()}
	case errors.Is(err, auth.ErrInactiveUser):
		status, body = http.StatusForbidden, errorBody{Code: "pending_approval", Message: err.Error()}
	case errors.Is(err, config.ErrMissingAPIKey):
		status, body = http.StatusServiceUnavailable, errorBody{Code: "configuration_error", Message: err.Error()}
	case errors.As(err, &fetch):
		status, body = http.StatusBadGateway, errorBody{Code: "fetch_failed", Message: fetch.Reason}
	case errors.As(err, &analysis):
		status, body = http.StatusBadGateway, errorBody{Code: "analysis_failed", Message: err.Error(), Kind: analysis.Kind.String()}
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
