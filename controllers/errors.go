package controllers

import (
	"errors"
	"net/http"

	"civicreporter-be/store"
	"civicreporter-be/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorCase maps a sentinel error to an HTTP status code and message.
type errorCase struct {
	err     error
	status  int
	message string
}

// respondError writes the response for err. Validation errors carry their own
// message; matched cases use theirs; anything else is logged and answered
// with a generic 500.
func respondError(c *gin.Context, log *zap.Logger, err error, cases []errorCase, fallbackMessage string) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		body := gin.H{"error": verr.Message}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	for _, cs := range cases {
		if errors.Is(err, cs.err) {
			c.JSON(cs.status, gin.H{"error": cs.message})
			return
		}
	}

	_ = c.Error(err)
	log.Error(fallbackMessage, zap.Error(err), zap.String("route", c.FullPath()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallbackMessage})
}

func notFound(message string) errorCase {
	return errorCase{err: store.ErrNotFound, status: http.StatusNotFound, message: message}
}
