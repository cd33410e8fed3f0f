package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates the HTTP surface: health, stats, metrics and the
// manual-trigger endpoint.
func NewServer(handler *Handler, manualTriggerToken string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	setupRoutes(r, handler, manualTriggerToken)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, manualTriggerToken string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if manualTriggerToken != "" {
		admin := r.Group("/admin")
		admin.Use(manualTriggerMiddleware(manualTriggerToken))
		{
			admin.POST("/run-job", handler.RunJob)
		}
		slog.Info("Manual trigger endpoint enabled")
	} else {
		slog.Info("Manual trigger endpoint disabled (MANUAL_TRIGGER_TOKEN not set)")
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health":  "/health",
			"stats":   "/stats",
			"metrics": "/metrics",
		}
		if manualTriggerToken != "" {
			endpoints["run_job"] = "/admin/run-job (POST, requires X-Manual-Trigger header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "yt-pull",
			"version":     handler.version,
			"description": "YouTube channel RSS ingestion puller",
			"endpoints":   endpoints,
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// manualTriggerMiddleware guards the admin routes with the shared
// manual-trigger secret.
func manualTriggerMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Manual-Trigger")

		if provided == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "manual trigger token required",
				"message": "Provide the token in the X-Manual-Trigger header",
			})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid manual trigger token",
				"message": "The provided token is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
