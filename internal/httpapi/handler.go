// Package httpapi holds the gin helpers shared by the resource services.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inabottle/internal/logger"
	"inabottle/pkg/errors"
)

type BaseHandler struct {
	Logger logger.Logger
}

// HandleError renders a missing resource as a bare 404 and every other error
// as the JSON error body.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if errors.IsNotFound(err) {
		c.Status(http.StatusNotFound)
		return
	}

	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.Logger.WarnwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, errors.ToErrorResponse(err))
}

// BindJSON decodes the request body into v, answering 400 on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return false
	}
	return true
}
