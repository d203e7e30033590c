package routes

import (
	"github.com/gin-gonic/gin"
)

func SetupRegularRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"name": "tritonhub",
			"mode": h.Guard.Mode().String(),
		})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
