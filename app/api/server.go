package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP engine with all routes configured
func NewServer(handler *Handler) *gin.Engine {
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

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/feeds", handler.ListFeeds)
	r.GET("/feeds/:id/entries", handler.GetFeedEntries)

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	api := r.Group("/api")
	{
		api.POST("/feeds", handler.DiscoverFeed)
		api.POST("/feeds/:id/refresh", handler.RefreshFeed)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "feedreader",
			"endpoints": gin.H{
				"feeds":    "/feeds",
				"entries":  "/feeds/<id>/entries",
				"discover": "/api/feeds (POST)",
				"refresh":  "/api/feeds/<id>/refresh (POST)",
				"health":   "/health",
				"stats":    "/stats",
			},
		})
	})
}
