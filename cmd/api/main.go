package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skolar-lms/skolar-api/internal/config"
	"github.com/skolar-lms/skolar-api/internal/database"
	"github.com/skolar-lms/skolar-api/internal/handler"
	"github.com/skolar-lms/skolar-api/internal/middleware"
	"github.com/skolar-lms/skolar-api/internal/models"
	"github.com/skolar-lms/skolar-api/internal/repository"
	"github.com/skolar-lms/skolar-api/internal/router"
	"github.com/skolar-lms/skolar-api/internal/service"
	cloud "github.com/skolar-lms/skolar-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.Module{},
		&models.Unit{},
		&models.LearningPart{},
		&models.StudentProgress{},
		&models.Assignment{},
		&models.Question{},
		&models.Attempt{},
		&models.Submission{},
		&models.AssignmentResult{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, results cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, completion events disabled")
	}

	var uploader service.FileUploader
	if cfg.CloudinaryCloudName != "" {
		cld, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cld
	} else {
		logger.Warn().Msg("cloudinary not configured, assignment attachments disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	resultRepo := repository.NewResultRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	contentRepo := repository.NewContentRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	monitor := service.NewAttemptMonitor(logger)
	policy := service.NewAttemptPolicy(assignmentRepo, attemptRepo, submissionRepo, logger)
	questionBank := service.NewQuestionBankService(questionRepo, attemptRepo, validate, logger)
	resultsService := service.NewResultsService(resultRepo, studentRepo, redisClient, cfg.ResultsCacheTTL, logger)
	completionService := service.NewCompletionService(progressRepo, natsConn, logger)
	attemptService := service.NewAttemptService(assignmentRepo, attemptRepo, submissionRepo, policy, questionBank, resultsService, completionService, monitor, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, attemptRepo, uploader, validate, logger)
	contentService := service.NewContentService(contentRepo, progressRepo, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AttemptHandler:         handler.NewAttemptHandler(attemptService, logger),
		ResultsHandler:         handler.NewResultsHandler(resultsService, logger),
		ContentHandler:         handler.NewContentHandler(contentService, logger),
		AdminAssignmentHandler: handler.NewAdminAssignmentHandler(assignmentService, questionBank, resultsService, logger),
		MonitorHandler:         handler.NewMonitorHandler(monitor, logger),
		JWTMiddleware:          middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
