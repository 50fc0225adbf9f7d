package app

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"serverless-bridge/internal/config"
	"serverless-bridge/internal/metrics"
	"serverless-bridge/internal/middleware"
	"serverless-bridge/pkg/gateway"
)

// InvokePath accepts raw platform events on the local emulator.
const InvokePath = "/_invoke"

// maxEventBytes caps the size of an event posted to InvokePath.
const maxEventBytes = 6 << 20

// EmulatorConfig holds the collaborators of the local emulator
type EmulatorConfig struct {
	Adapter   *gateway.Adapter
	Collector *metrics.Collector
	Auth      *middleware.AuthService
}

// NewEmulator builds the local stand-in for the hosting platform. Events
// posted to InvokePath are decoded as platform records; any other request
// goes through the adapter as an object-style request.
func NewEmulator(cfg *config.Config, ec EmulatorConfig) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger())

	router.GET("/_health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now().UTC(),
			"mode":       config.GetDeploymentMode(),
			"serverless": config.IsServerlessMode(),
		})
	})

	if ec.Collector != nil && cfg.Server.EnableMetrics {
		router.GET("/metrics", gin.WrapH(ec.Collector.Handler()))
	}

	invoke := router.Group(InvokePath)
	invoke.Use(middleware.RateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	invoke.Use(middleware.Authentication(ec.Auth))
	invoke.Use(middleware.ContentTypeValidation("application/json"))
	invoke.POST("", invokeEvent(ec.Adapter))

	forward := gin.WrapH(ec.Adapter)
	limit := middleware.RateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	router.NoRoute(limit, forward)

	return router
}

// invokeEvent returns the outbound platform record as JSON, always with
// status 200 like the platform's invoke API.
func invokeEvent(adapter *gateway.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorResponse{
				Error:     "Invalid event",
				Message:   err.Error(),
				RequestID: c.GetString(middleware.RequestIDKey),
				Timestamp: time.Now().Format(time.RFC3339),
			})
			return
		}

		c.JSON(http.StatusOK, adapter.HandleEvent(c.Request.Context(), data))
	}
}
