package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/dragon-peak/quiz-game-service/internal/services"
	"github.com/dragon-peak/quiz-game-service/internal/utils"
	"github.com/dragon-peak/quiz-game-service/internal/validator"
)

type HandlerManager struct {
	sessionHandler   *SessionHandler
	webSocketHandler *WebSocketHandler
}

func NewHandlerManager(
	gameService services.GameService,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler:   NewSessionHandler(gameService, validator, logger),
		webSocketHandler: NewWebSocketHandler(gameService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.CreateSession)
			sessions.POST("/import", hm.sessionHandler.ImportQuestions)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.POST("/:id/select", hm.sessionHandler.SelectAnswer)
			sessions.POST("/:id/submit", hm.sessionHandler.Submit)
			sessions.POST("/:id/continue", hm.sessionHandler.Continue)
			sessions.POST("/:id/restart", hm.sessionHandler.Restart)

			// Player socket: snapshots and audio cues over one connection
			sessions.GET("/:id/ws", hm.webSocketHandler.HandlePlayerSocket)
		}

		// Host socket: creates a bridged session and streams questions in
		v1.GET("/host/ws", hm.webSocketHandler.HandleHostSocket)
	}
}
