package route

import (
	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/handler"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/middleware"
	"github.com/Mikhail1201/FAYES/internal/repository"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP routes call into. History may be nil.
type Dependencies struct {
	Controller handler.ScannerController
	Hub        handler.EventHub
	History    repository.OutcomeRepository
	Logger     *logger.Logger
}

// SetupRoutes registers the controller API and wraps it with the API key middleware.
func SetupRoutes(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.APIKeyMiddleware(cfg.ControlAPIKey))

	router.GET("/", handler.LivenessHandler())

	scanner := router.Group("/scanner")
	scanner.POST("/start", handler.StartScannerHandler(deps.Controller, deps.Logger))
	scanner.POST("/stop", handler.StopScannerHandler(deps.Controller))
	scanner.GET("/status", handler.ScannerStatusHandler(deps.Controller))
	if deps.Hub != nil {
		scanner.GET("/events", handler.ScannerEventsHandler(deps.Hub, deps.Logger))
	}
	if deps.History != nil {
		scanner.GET("/history", handler.HistoryHandler(deps.History, deps.Logger))
	}

	logs := router.Group("/logs")
	logs.GET("/:level", handler.ShowLogsHandler(cfg.LogDirectory))
	logs.POST("/:level/clear", handler.ClearLogsHandler(deps.Logger))

	return router
}
