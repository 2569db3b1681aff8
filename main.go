package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/dragon-peak/quiz-game-service/internal/cache"
	"github.com/dragon-peak/quiz-game-service/internal/config"
	"github.com/dragon-peak/quiz-game-service/internal/handlers"
	"github.com/dragon-peak/quiz-game-service/internal/services"
	"github.com/dragon-peak/quiz-game-service/internal/source"
	"github.com/dragon-peak/quiz-game-service/internal/utils"
	"github.com/dragon-peak/quiz-game-service/internal/validator"
	"github.com/dragon-peak/quiz-game-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger utils.Logger
	if cfg.Environment == "development" {
		logger = utils.NewDevelopmentLogger()
	} else {
		logger = utils.NewDefaultLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	// Redis is optional; without it remote question sets are just fetched
	// every time.
	questionCache := cache.QuestionCache(cache.NoopQuestionCache{})
	if cfg.RedisURL != "" {
		redisClient, err := pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, running without question cache", "error", err.Error())
		} else {
			defer redisClient.Close()
			questionCache = cache.NewRedisQuestionCache(redisClient, slogger)
			logger.Info("Connected to Redis")
		}
	}

	remote := source.NewRemoteSource(
		cfg.QuizAPIBaseURL,
		&http.Client{},
		questionCache,
		cfg.QuestionCacheTTL,
		slogger,
	)
	resolver := source.NewResolver(remote, cfg.QuizAPITimeout, slogger)

	eventCfg := config.LoadEventConfig()
	publisher, err := eventCfg.CreateEventPublisher(slogger)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}
	defer publisher.Close()

	v := validator.New()
	// The remote API bound doubles as the host-response bound for bridged
	// sessions; both waits fall back to the built-in set when it elapses.
	gameService := services.NewGameService(resolver, v, publisher, cfg.QuizAPITimeout, slogger)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(gin.Recovery())

	handlerManager := handlers.NewHandlerManager(gameService, v, logger)
	handlerManager.SetupRoutes(router)

	go func() {
		logger.Info("Quiz game service starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Quiz game service stopped")
}
