package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huntable/jangter/browser"
	"github.com/huntable/jangter/models"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports the shared browser session state. A browser that was never
// launched is healthy: the session is lazy and most traffic is served by
// the HTTP engine alone.
func Health(sessions *browser.Manager, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sessions.Stats()

		status := "healthy"
		if stats.State == "closed" {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Browser: stats,
			Sources: models.ScrapableSources,
			Version: "0.1.0",
		})
	}
}
