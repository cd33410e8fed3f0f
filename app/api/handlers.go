package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ugboard/yt-pull/app/channel"
	"github.com/ugboard/yt-pull/app/database"
)

func NewHandler(runner PipelineRunner, seenRepo database.SeenRepository,
	registry *channel.Registry, engineURLSet, hasToken bool, version string) *Handler {
	return &Handler{
		runner:       runner,
		seenRepo:     seenRepo,
		registry:     registry,
		engineURLSet: engineURLSet,
		hasToken:     hasToken,
		version:      version,
	}
}

// GetHealth is a liveness probe. It always answers 200 and never triggers
// ingestion.
func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"engine_url_set": h.engineURLSet,
		"has_token":      h.hasToken,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"channels": h.registry.Count(),
		"version":  h.version,
	}

	if h.seenRepo != nil {
		if count, err := h.seenRepo.Count(); err == nil {
			stats["seen_items"] = count
		} else {
			slog.Error("Database error", "operation", "count_seen_items", "error", err)
		}
	}

	if last := h.runner.LastRun(); last != nil {
		stats["last_run"] = last
	}

	c.JSON(http.StatusOK, stats)
}

// RunJob triggers one synchronous pipeline run. The caller already passed the
// manual-trigger check in the route middleware.
func (h *Handler) RunJob(c *gin.Context) {
	slog.Info("Manual pipeline run triggered", "client_ip", c.ClientIP())

	result := h.runner.RunOnce(c.Request.Context())

	timestamp := time.Now().UTC().Format(time.RFC3339)
	if result.Failed() {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"message":   result.PushError,
			"timestamp": timestamp,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   runSummary(result.ChannelsProcessed, result.RecordsForwarded, len(result.ChannelFailures)),
		"timestamp": timestamp,
	})
}

func runSummary(processed, forwarded, failures int) string {
	return fmt.Sprintf("processed %d channels, forwarded %d records, %d channel failures",
		processed, forwarded, failures)
}
