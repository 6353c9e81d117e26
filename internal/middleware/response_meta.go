package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lawmon-api/pkg/response"
)

const cacheHitKey = "cache_hit"

// WithResponseMeta starts the latency clock reported in response metadata.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.MarkStart(c)
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	response.SetMeta(c, cacheHitKey, hit)
}
