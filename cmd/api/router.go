package api

import (
	"net/http"

	"jobtrail-backend/internal/application/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, handler *delivery.Handler) {
	api := r.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/ingest", handler.Ingest)
		api.POST("/query", handler.Query)
		api.POST("/check-url", handler.CheckURL)
	}
}
