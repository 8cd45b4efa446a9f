package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/capitolledger/internal/domain/dto"
	"github.com/guttosm/capitolledger/internal/logger"
)

// ErrorHandler turns errors attached with c.Error into a standardized JSON response
// when the handler did not write one itself.
//
// Behavior:
//   - Runs the rest of the chain first.
//   - Logs every attached error with the request id.
//   - Responds 500 with the last error if nothing was written yet.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 {
		return
	}
	rid, _ := c.Get(RequestIDKey)
	l := logger.Component("http")
	for _, e := range c.Errors {
		l.Error().Str("request_id", toString(rid)).Str("route", c.FullPath()).Err(e.Err).Msg("request error")
	}
	if c.Writer.Written() {
		return
	}
	last := c.Errors.Last()
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", last.Err))
}

// AbortWithError stops the chain and writes a standardized error body with status.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
