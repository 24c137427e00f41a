package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/resume-analyzer/internal/config"
	"alfredoptarigan/resume-analyzer/internal/handlers"
	"alfredoptarigan/resume-analyzer/internal/logger"
	"alfredoptarigan/resume-analyzer/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	log.Info("config loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("provider", cfg.Generation.Provider),
		zap.Bool("concurrent_summaries", cfg.Pipeline.ConcurrentSummaries),
		zap.Int("retry_max_attempts", cfg.Retry.MaxAttempts),
	)

	// Initialize generation client
	client, err := services.NewGenerationClient(cfg.Generation, log)
	if err != nil {
		log.Fatal("failed to initialize generation client", zap.Error(err))
	}
	log.Info("generation client initialized", zap.String("provider", cfg.Generation.Provider))

	// Initialize pipeline
	orchestrator := services.NewOrchestrator(
		services.NewTextExtractor(),
		client,
		services.DefaultPromptRegistry(),
		services.NewPipelineOptions(cfg.Pipeline, cfg.Retry),
		log,
	)
	limiter := services.NewRunLimiter(cfg.Pipeline.MaxConcurrentRuns, log)
	analyzer := services.NewAnalyzerService(orchestrator, limiter)

	// Initialize handlers
	analyzeHandler := handlers.NewAnalyzeHandler(
		analyzer,
		services.NewUploadReader(cfg.Upload.MaxFileSize),
		cfg.Pipeline.RunTimeout,
		log,
	)

	// Create Fiber app. Body limit is the largest upload plus 1 MiB of form fields.
	app := fiber.New(fiber.Config{
		AppName:      "Resume Analyzer API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Pipeline.RunTimeout + 30*time.Second,
		BodyLimit:    int(cfg.Upload.MaxFileSize) + 1<<20,
		ErrorHandler: customErrorHandler(log),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "healthy",
			"time":         time.Now(),
			"provider":     cfg.Generation.Provider,
			"runs_active":  limiter.InFlight(),
			"runs_allowed": limiter.Capacity(),
		})
	})

	analyzeHandler.Register(api)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Resume Analyzer API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/health",
				"POST /api/v1/analyze",
				"POST /api/v1/analyze/stream",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(cfg.Pipeline.RunTimeout); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

func customErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
			"code":  code,
		})
	}
}
