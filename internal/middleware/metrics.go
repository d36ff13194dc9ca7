package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/famboard/chores-api/internal/service"
)

// Metrics records request duration and status per route template. The scrape
// endpoint itself is skipped so it does not inflate its own series.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// unmatched routes collapse into one label to keep cardinality down
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
