package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"video-narrator/internal/handler"
)

func SetupRouter(r *gin.Engine, hdl *handler.Handler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/narrate", hdl.StartNarration)
		api.GET("/narrate", hdl.GetHistory)
		api.GET("/narrate/:runId", hdl.GetNarration)
		api.GET("/narrate/:runId/ws", hdl.WatchNarration)
		api.DELETE("/narrate/:runId", hdl.DeleteNarration)
		api.POST("/narrate/:runId/retry", hdl.RetryNarration)
		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
		api.GET("/config", hdl.GetConfig)
		api.POST("/config", hdl.UpdateConfig)
	}
}
