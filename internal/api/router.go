package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/capitolledger/internal/middleware"
)

const (
	requestTimeout = 10 * time.Second
	rateLimit      = 60
	rateWindow     = time.Minute
)

// withTimeout bounds every request context; store queries observe it.
func withTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// NewRouter creates a Gin engine serving run reports and the review queue.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter).
//   - Bounds each request with a 10 second context.
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1/runs, /api/v1/review).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
//
// Parameters:
//   - handler (*Handler): The HTTP handler with the report service injected.
//
// Returns:
//   - *gin.Engine: Configured Gin router.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(rateLimit, rateWindow),
		withTimeout(requestTimeout),
	)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		runs.GET("/latest", handler.GetLatestRun)
		runs.GET("/:id", handler.GetRun)

		v1.GET("/review", handler.ListReview)
	}

	return router
}
