package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"bart-backend/internal/config"
	"bart-backend/internal/engine"
	"bart-backend/internal/handlers"
	"bart-backend/internal/middleware"
	"bart-backend/internal/models"
	"bart-backend/internal/recorder"
	"bart-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "task.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	taskSeed := cfg.Task.TaskSeed
	if taskSeed == "" {
		taskSeed, err = models.GenerateTaskSeed()
		if err != nil {
			log.Fatalf("Failed to generate task seed: %v", err)
		}
		log.Printf("No task seed configured, drew %s (set TASK_SEED to reproduce this run)", taskSeed)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	rec, err := buildRecorder(cfg)
	if err != nil {
		log.Fatalf("Failed to open recorder: %v", err)
	}
	defer rec.Close()

	jwtService := services.NewJWTService(cfg)
	trialEngine := engine.New(taskSeed)
	sessionService := services.NewSessionService(redisService, trialEngine, rec, cfg)
	wsHandler := handlers.NewWebSocketHandler(sessionService)

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		idle := time.Duration(cfg.Task.IdleTimeoutSec) * time.Second
		for range ticker.C {
			sessionService.SweepIdle(idle)
		}
	}()

	sessionHandler := handlers.NewSessionHandler(sessionService, jwtService)
	taskHandler := handlers.NewTaskHandler(sessionService)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/sessions", sessionHandler.Register)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		task := protected.Group("/task")
		{
			task.POST("/start", taskHandler.StartPractice)
			task.POST("/begin-main", taskHandler.BeginMain)
			task.POST("/pump", taskHandler.Pump)
			task.POST("/cashout", taskHandler.CashOut)
			task.GET("/state", taskHandler.State)
			task.GET("/summary", taskHandler.Summary)

			task.GET("/verification", taskHandler.GetVerificationData)
			task.POST("/verify", taskHandler.VerifyTrial)
		}
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildRecorder(cfg *config.Config) (recorder.Recorder, error) {
	switch cfg.Recorder.Backend {
	case "sqlite":
		return recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath)
	case "none":
		return recorder.NewNoopRecorder(), nil
	default:
		return recorder.NewCSVRecorder(cfg.Recorder.CSVDir)
	}
}
