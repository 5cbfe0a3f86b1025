package http

import (
	"github.com/gin-gonic/gin"

	"paperchat/internal/bootstrap"
	"paperchat/internal/logger"
	"paperchat/internal/transport/http/handler"
	"paperchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()

	var recorder middleware.RequestRecorder
	if app.Metrics != nil {
		recorder = app.Metrics
	}
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger.Component(app.Log, "http"), recorder),
		middleware.CORS(),
	)
	router.MaxMultipartMemory = 32 << 20

	healthHandler := handler.NewHealthHandler(
		app.Config.App.Name,
		app.Config.App.Env,
		app.StartedAt,
		app.Store.Len,
		app.HealthChecks(),
	)
	paperHandler := handler.NewPaperHandler(app.Ingestion, app.Papers, app.Config.MaxUploadBytes())
	chatHandler := handler.NewChatHandler(app.Query, app.History)

	router.GET("/healthz", healthHandler.Check)
	if app.Metrics != nil && app.Config.Metrics.Enabled {
		router.GET(app.Config.Metrics.Path, gin.WrapH(app.Metrics.Handler()))
	}

	// The same API is served at the root and under /api.
	for _, group := range []*gin.RouterGroup{&router.RouterGroup, router.Group("/api")} {
		group.POST("/upload", paperHandler.Upload)
		group.GET("/papers", paperHandler.List)
		group.POST("/chat", chatHandler.Chat)
		group.GET("/history", chatHandler.History)
	}

	return router
}
