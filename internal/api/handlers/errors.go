package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gw-currency-rates/internal/apperrors"
	"github.com/sirupsen/logrus"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor возвращает HTTP статус для вида ошибки
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindFormat, apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError отвечает {error, message}; внутренние ошибки не раскрываются клиенту
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	kind := apperrors.KindOf(err)
	status := statusFor(kind)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorf("Request %s failed: %v", c.Request.URL.Path, err)
		message = "Internal server error"
	}

	c.JSON(status, ErrorResponse{Error: string(kind), Message: message})
}
