package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huntable/jangter/cache"
	"github.com/huntable/jangter/models"
)

// ClearCache returns a handler for DELETE /api/v1/cache.
// Evicts every cached search result; the next searches hit the sources.
func ClearCache(store *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		evicted := 0
		if store != nil {
			evicted = store.Clear()
		}
		c.JSON(http.StatusOK, models.CacheClearResponse{
			Success: true,
			Evicted: evicted,
		})
	}
}
