package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/psychotest-service/internal/services"
	"github.com/SAP-F-2025/psychotest-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	kraepelinHandler *KraepelinHandler
}

func NewHandlerManager(
	kraepelinService services.KraepelinService,
	transferService services.ImportExportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		kraepelinHandler: NewKraepelinHandler(kraepelinService, transferService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1", UserContext())
	{
		kraepelin := v1.Group("/kraepelin")

		// Live sessions
		sessions := kraepelin.Group("/sessions")
		{
			sessions.POST("", hm.kraepelinHandler.StartSession)
			sessions.GET("/:id", hm.kraepelinHandler.GetSession)
			sessions.DELETE("/:id", hm.kraepelinHandler.CancelSession)
			sessions.POST("/:id/answers", hm.kraepelinHandler.SubmitAnswer)
			sessions.POST("/:id/undo", hm.kraepelinHandler.Undo)
			sessions.POST("/:id/tick", hm.kraepelinHandler.Tick)
			sessions.POST("/:id/finalize", hm.kraepelinHandler.Finalize)
		}

		// Stored results
		results := kraepelin.Group("/results")
		{
			results.POST("", hm.kraepelinHandler.SubmitResult)
			results.GET("", hm.kraepelinHandler.ListResults)
			results.GET("/stats", hm.kraepelinHandler.GetStats)
			results.GET("/export", hm.kraepelinHandler.ExportResults)
			results.POST("/import", hm.kraepelinHandler.ImportResult)
			results.GET("/:id", hm.kraepelinHandler.GetResult)
			results.GET("/:id/export", hm.kraepelinHandler.ExportResultDetail)
		}
	}
}

// HealthCheck reports liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "psychotest-service",
	})
}
