package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/handlers"
	"learnpath/interview-api/internal/logger"
	"learnpath/interview-api/internal/metrics"
	"learnpath/interview-api/internal/repositories"
	"learnpath/interview-api/internal/services"
	"learnpath/interview-api/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLog, err := logger.New(cfg.Log, cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLog.Sync()

	if err := cfg.Validate(); err != nil {
		zapLog.Fatal("invalid configuration", zap.Error(err))
	}
	zapLog.Info("config loaded", zap.String("env", cfg.Server.Env))

	// Initialize database
	db, err := config.InitDatabase(cfg, logger.NewGormLogger(zapLog, gormlogger.Warn))
	if err != nil {
		zapLog.Fatal("failed to initialize database", zap.Error(err))
	}
	docStore := store.NewGormStore(db)

	// Initialize repositories
	interviewRepo := repositories.NewInterviewRepository(docStore, zapLog)
	feedbackRepo := repositories.NewFeedbackRepository(docStore, zapLog)
	courseRepo := repositories.NewCourseRepository(docStore)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(ctx, cfg.Gemini, zapLog)
	if err != nil {
		zapLog.Fatal("failed to initialize gemini", zap.Error(err))
	}

	// Vector index is optional; without it scoring runs without course context
	// and material uploads are not offered.
	var (
		retriever     services.CourseContextRetriever
		worker        services.Worker
		uploadHandler *handlers.UploadHandler
	)
	if cfg.Qdrant.Enabled {
		qdrantService, err := services.NewQdrantService(cfg.Qdrant, zapLog)
		if err != nil {
			zapLog.Fatal("failed to initialize qdrant", zap.Error(err))
		}
		defer qdrantService.Close()

		if err := qdrantService.InitCollection(ctx); err != nil {
			zapLog.Fatal("failed to initialize qdrant collection", zap.Error(err))
		}
		retriever = services.NewCourseContextRetriever(geminiService, qdrantService, cfg.Interview.ContextChunks)

		storageService := services.NewStorageService(cfg.Storage.UploadPath)
		if err := storageService.EnsureUploadDir(); err != nil {
			zapLog.Fatal("failed to create upload directory", zap.Error(err))
		}

		indexer := services.NewCourseIndexer(
			geminiService,
			qdrantService,
			services.NewPDFParserService(),
			services.NewTextChunker(),
			zapLog,
		)
		worker = services.NewWorker(indexer, cfg.Worker.Concurrency, cfg.Worker.QueueSize, zapLog)
		worker.Start(ctx)

		uploadHandler = handlers.NewUploadHandler(courseRepo, storageService, worker, cfg.Storage.MaxFileSize, zapLog)
		zapLog.Info("vector index enabled", zap.String("collection", cfg.Qdrant.Collection))
	}

	// Initialize services
	assessor := services.NewAssessmentClient(geminiService, courseRepo, retriever, zapLog)
	questions := services.NewQuestionGenerator(geminiService, cfg.Interview, zapLog)
	coordinator := services.NewFeedbackCoordinator(docStore, interviewRepo, feedbackRepo, assessor, cfg.Interview, zapLog)
	lifecycle := services.NewInterviewLifecycle(interviewRepo, feedbackRepo, courseRepo, questions, coordinator, cfg.Interview, zapLog)

	validate := services.NewValidator()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "LearnPath Interview API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: handlers.NewErrorHandler(zapLog),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(handlers.RequestLogger(zapLog))
	app.Use(metrics.Middleware(handlers.StatusOf))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.Server.CORSOrigins != "*",
	}))

	app.Get("/metrics", metrics.Handler())

	handlers.Routes{
		Interviews: handlers.NewInterviewHandler(lifecycle, validate),
		Feedback:   handlers.NewFeedbackHandler(lifecycle, validate),
		Courses:    handlers.NewCourseHandler(courseRepo),
		Upload:     uploadHandler,
		JWTSecret:  cfg.Auth.JWTSecret,
	}.Register(app)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		endpoints := []string{
			"POST /api/v1/interviews",
			"GET /api/v1/interviews/status/:courseId",
			"GET /api/v1/interviews",
			"POST /api/v1/feedback",
			"GET /api/v1/feedback/:id",
			"GET /api/v1/feedback",
			"GET /api/v1/courses/:courseId",
		}
		if uploadHandler != nil {
			endpoints = append(endpoints, "POST /api/v1/courses/:courseId/materials")
		}
		return c.JSON(fiber.Map{
			"message":   "LearnPath Interview API",
			"version":   "1.0.0",
			"endpoints": endpoints,
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-quit
		zapLog.Info("shutting down server")
		if err := app.ShutdownWithTimeout(cfg.Interview.CommitTimeout + 5*time.Second); err != nil {
			zapLog.Error("server forced to shutdown", zap.Error(err))
		}
		if worker != nil {
			worker.Stop()
		}
		stop()
	}()

	// Start server
	addr := fmt.Sprintf(":%s", strings.TrimPrefix(cfg.Server.Port, ":"))
	zapLog.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zapLog.Fatal("failed to start server", zap.Error(err))
	}
	<-done
	zapLog.Info("server stopped")
}
