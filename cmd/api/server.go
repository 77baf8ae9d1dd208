package api

import (
	"jobtrail-backend/internal/application/delivery"

	"github.com/gin-gonic/gin"
)

// NewServer builds the gin engine with all routes registered.
func NewServer(handler *delivery.Handler) *gin.Engine {
	r := gin.Default()
	SetupRoutes(r, handler)
	return r
}
