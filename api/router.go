package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/huntable/jangter/aggregator"
	"github.com/huntable/jangter/api/handler"
	"github.com/huntable/jangter/api/middleware"
	"github.com/huntable/jangter/browser"
	"github.com/huntable/jangter/cache"
	"github.com/huntable/jangter/config"
	"github.com/huntable/jangter/sources"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics endpoints stay outside auth so monitoring probes
// always work.
func NewRouter(agg *aggregator.Aggregator, details *sources.DetailScraper, sessions *browser.Manager, store *cache.Store, metrics *aggregator.Metrics, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(sessions, startTime))
	v1.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/search", handler.Search(agg))
	protected.POST("/products/details", handler.Details(details))
	protected.DELETE("/cache", handler.ClearCache(store))

	return r
}
