package config

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// PerformanceLogger logs every request with its latency and flags slow ones.
func PerformanceLogger(slow time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		log.Printf("[PERF] %s %s | Status: %d | Time: %v",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			latency)

		if slow > 0 && latency > slow {
			log.Printf("[PERF] SLOW REQUEST: %s %s took %v",
				c.Request.Method, c.Request.URL.Path, latency)
		}
		for _, err := range c.Errors {
			log.Printf("[PERF] %s %s error: %v", c.Request.Method, c.Request.URL.Path, err.Err)
		}
	}
}
