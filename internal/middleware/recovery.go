package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/capitolledger/internal/domain/dto"
	"github.com/guttosm/capitolledger/internal/logger"
)

// RecoveryMiddleware returns a Gin middleware that recovers from panics in handlers,
// logs them with the request id and stack, and answers with a standardized 500 body.
// The panic value is logged but never echoed to the client.
//
// Example:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RecoveryMiddleware())
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			rid, _ := c.Get(RequestIDKey)
			l := logger.Component("http")
			l.Error().
				Str("request_id", toString(rid)).
				Str("route", c.FullPath()).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", nil))
		}()

		c.Next()
	}
}
