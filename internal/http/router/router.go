package router

import (
	"github.com/gin-gonic/gin"

	"github.com/pc1e0/comm/internal/http/handler"
)

func SetupRoutes(router *gin.Engine, status *handler.StatusHandler) {
	router.GET("/health", status.Health)
	router.GET("/status", status.Status)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/observations", status.Observations)
	}
}
