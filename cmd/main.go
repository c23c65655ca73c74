package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sulafhq/sulaf-backend/internal/covers"
	"github.com/sulafhq/sulaf-backend/internal/db"
	"github.com/sulafhq/sulaf-backend/internal/downloader"
	"github.com/sulafhq/sulaf-backend/internal/handlers"
	"github.com/sulafhq/sulaf-backend/internal/jobs"
	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/middleware"
	"github.com/sulafhq/sulaf-backend/internal/repos"
	"github.com/sulafhq/sulaf-backend/internal/resolver"
	"github.com/sulafhq/sulaf-backend/internal/scraper"
	"github.com/sulafhq/sulaf-backend/internal/server"
	"github.com/sulafhq/sulaf-backend/internal/services"
	"github.com/sulafhq/sulaf-backend/internal/storage"
	"github.com/sulafhq/sulaf-backend/internal/stories"
	"github.com/sulafhq/sulaf-backend/internal/utils"
	"github.com/sulafhq/sulaf-backend/internal/ws"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	bookRepo := repos.NewBookRepo(thePG, log)
	bookRequestRepo := repos.NewBookRequestRepo(thePG, log)
	aiStoryRepo := repos.NewAIStoryRepo(thePG, log)

	// Media storage
	mediaStore, err := storage.NewMediaStore(log)
	if err != nil {
		log.Fatal("Media store init failed", "error", err)
	}

	// Redis (optional search cache)
	var redisClient *redis.Client
	if addr := utils.GetEnv("REDIS_ADDR", "", log); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unreachable, search caching disabled", "addr", addr, "error", err)
			redisClient = nil
		}
		cancel()
	}

	// Services
	log.Info("Setting up Services from main...")
	scraperService := scraper.NewService(log, bookRepo, nil, redisClient)
	resolverService := resolver.NewService(log, resolver.DefaultConfig())
	downloadService := downloader.NewService(log, mediaStore)
	coverService := covers.NewSynthesizer(log, mediaStore)
	rendererService := stories.NewRenderer(log, mediaStore)
	authService := services.NewAuthService(log, userRepo)

	var aiClient *services.OpenAIClient
	aiClient, err = services.NewOpenAIClient(log)
	if err != nil {
		if errors.Is(err, services.ErrNoAPIKey) {
			log.Warn("OPENAI_API_KEY not set; story generation endpoints are disabled")
			aiClient = nil
		} else {
			log.Fatal("Could not init OpenAIClient", "error", err)
		}
	}

	// Job pools and runners
	hub := ws.NewHub(log)
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	acquisitionWorkers := utils.GetEnvAsInt("ACQUISITION_WORKERS", 2, log)
	generationWorkers := utils.GetEnvAsInt("GENERATION_WORKERS", 2, log)
	acquisitionPool := jobs.NewPool(log, "acquisition", acquisitionWorkers, acquisitionWorkers*4)
	generationPool := jobs.NewPool(log, "generation", generationWorkers, generationWorkers*4)
	acquisitionPool.Start(rootCtx)
	generationPool.Start(rootCtx)

	acquisitionRunner := jobs.NewAcquisitionRunner(log, acquisitionPool,
		bookRequestRepo, bookRepo, mediaStore,
		resolverService, downloadService, coverService, hub)

	var generationRunner *jobs.GenerationRunner
	if aiClient != nil {
		generationRunner = jobs.NewGenerationRunner(log, generationPool,
			aiStoryRepo, bookRepo, mediaStore,
			aiClient, aiClient, rendererService, coverService, hub)
	}

	// Jobs queued by a previous run cannot resume; fail them before serving.
	staleGraceMin := utils.GetEnvAsInt("JOB_STALE_GRACE_MINUTES", 60, log)
	jobs.SweepStale(rootCtx, log, bookRequestRepo, aiStoryRepo, time.Duration(staleGraceMin)*time.Minute)

	// Router
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log), ",")
	if len(allowOrigins) == 1 && allowOrigins[0] == "" {
		allowOrigins = nil
	}
	router := server.NewRouter(server.RouterConfig{
		HealthcheckHandler: handlers.NewHealthcheckHandler(),
		AuthHandler:        handlers.NewAuthHandler(log, authService),
		AuthMiddleware:     middleware.NewAuthMiddleware(log, authService),
		BookHandler:        handlers.NewBookHandler(log, bookRepo, userRepo),
		SearchHandler:      handlers.NewSearchHandler(log, scraperService),
		AcquireHandler:     handlers.NewAcquireHandler(log, bookRequestRepo, acquisitionRunner),
		StoryHandler:       handlers.NewStoryHandler(log, aiStoryRepo, generationRunner),
		Hub:                hub,
		Media:              mediaStore,
		AllowOrigins:       allowOrigins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
