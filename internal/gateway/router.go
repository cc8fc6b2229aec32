package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimit is a token-bucket guard on the REST group. The websocket
// endpoint is not limited; attach cost is bounded by the registry itself.
func rateLimit(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// NewRouter builds the gin engine for the gateway.
func NewRouter(s *Server, rps float64) *gin.Engine {
	router := gin.Default()

	router.GET("/v1/ws/live/:pair", s.handleLive)

	api := router.Group("/v1/", rateLimit(rps, 10))
	api.GET("/analytics/:pair", s.handleAnalytics)
	api.GET("/analytics/:pair/adf", s.handleADF)
	api.GET("/candles/:symbol", s.handleCandles)

	return router
}
