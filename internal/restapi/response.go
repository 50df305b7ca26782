package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shirokuma-kb/shirokuma/internal/engine"
)

// Response is the envelope every endpoint replies with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, &Response{Success: false, Message: message})
}

// engineError maps an *engine.Error onto the matching HTTP status, falling
// back to 500 for anything it doesn't otherwise recognize.
func engineError(c *gin.Context, err error) {
	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		c.JSON(http.StatusInternalServerError, &Response{Success: false, Message: err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch engErr.Kind {
	case engine.KindNotFound:
		status = http.StatusNotFound
	case engine.KindAlreadyExists, engine.KindInUse:
		status = http.StatusConflict
	case engine.KindValidationError, engine.KindInvalidRelation, engine.KindInvalidQuery:
		status = http.StatusBadRequest
	case engine.KindBusy, engine.KindTimeout:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, &Response{Success: false, Message: engErr.Error()})
}
