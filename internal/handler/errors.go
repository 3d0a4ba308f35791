package handler

import (
	"errors"
	"net/http"

	"notebook-client/internal/backend"
	"notebook-client/internal/model"
	"notebook-client/internal/service"
	"notebook-client/internal/storage"
	"notebook-client/pkg/logger"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto gateway status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrGenerating):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoteNotFound), errors.Is(err, storage.ErrAudioNotFound),
		errors.Is(err, storage.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrClosed):
		return http.StatusServiceUnavailable
	case backend.StatusCode(err) != 0:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	body := gin.H{"error": err.Error()}
	if code := backend.StatusCode(err); code != 0 {
		body["backend_status"] = code
	}
	c.JSON(status, body)
}
