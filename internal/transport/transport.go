package transport

import (
	"time"

	"github.com/ds124wfegd/fractal-bot/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// InitRoutes registers /health and, when webhook is true, POST /webhook.
func InitRoutes(handler *UpdateHandler, webhook bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	mode := "polling"
	if webhook {
		mode = "webhook"
		router.POST("/webhook", handler.Webhook)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "fractal-bot",
			"mode":    mode,
		})
	})
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(started).String(),
		}).Debug("http request")
	}
}
