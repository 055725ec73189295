package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/adforge/adforge-backend/internal/clients/bucket"
	"github.com/adforge/adforge-backend/internal/clients/completion"
	"github.com/adforge/adforge-backend/internal/clients/elevenlabs"
	"github.com/adforge/adforge-backend/internal/clients/facebook"
	"github.com/adforge/adforge-backend/internal/clients/hedra"
	redisclient "github.com/adforge/adforge-backend/internal/clients/redis"
	"github.com/adforge/adforge-backend/internal/db"
	"github.com/adforge/adforge-backend/internal/handlers"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/middleware"
	"github.com/adforge/adforge-backend/internal/observability"
	"github.com/adforge/adforge-backend/internal/pipeline"
	"github.com/adforge/adforge-backend/internal/prompts"
	"github.com/adforge/adforge-backend/internal/repos"
	"github.com/adforge/adforge-backend/internal/server"
	"github.com/adforge/adforge-backend/internal/services"
	"github.com/adforge/adforge-backend/internal/sse"
	"github.com/adforge/adforge-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

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

	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "adforge-backend",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})
	if shutdownOTel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOTel(ctx)
		}()
	}

	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	campaignRepo := repos.NewCampaignRepo(thePG, log)
	stageRunRepo := repos.NewStageRunRepo(thePG, log)
	videoAssetRepo := repos.NewVideoAssetRepo(thePG, log)
	adAccountRepo := repos.NewAdAccountRepo(thePG, log)

	// SSE
	sseHub := sse.NewSSEHub(log)
	sseBus, err := redisclient.NewSSEBus(log)
	if err != nil {
		log.Warn("Redis SSE bus unavailable, events stay process local", "error", err)
		sseBus = nil
	} else {
		if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
			log.Warn("Redis SSE forwarder failed to start", "error", err)
		}
	}

	// Clients
	log.Info("Setting up clients from main...")
	llmClient, err := completion.NewClient(log)
	if err != nil {
		log.Error("Could not init completion client", "error", err)
		os.Exit(1)
	}
	ttsClient, err := elevenlabs.NewClient(log)
	if err != nil {
		log.Error("Could not init elevenlabs client", "error", err)
		os.Exit(1)
	}
	renderClient, err := hedra.NewClient(log)
	if err != nil {
		log.Error("Could not init hedra client", "error", err)
		os.Exit(1)
	}
	fbClient, err := facebook.NewClient(log)
	if err != nil {
		log.Error("Could not init facebook client", "error", err)
		os.Exit(1)
	}
	bucketService, err := bucket.NewService(log)
	if err != nil {
		log.Error("Could not init bucket service", "error", err)
		os.Exit(1)
	}
	cache, err := redisclient.NewCache(log)
	if err != nil {
		log.Warn("Redis cache unavailable, contexts rebuild from postgres", "error", err)
		cache = nil
	}

	promptsDir := utils.GetEnv("PROMPTS_DIR", "prompts", log)
	promptStore, err := prompts.LoadDir(promptsDir, log)
	if err != nil {
		log.Error("Could not load prompt templates", "error", err, "dir", promptsDir)
		os.Exit(1)
	}

	sealer, err := utils.NewTokenSealer(os.Getenv("TOKEN_SEALER_KEY"))
	if err != nil {
		log.Error("Could not init token sealer", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up services from main...")
	runner := pipeline.NewRunner(llmClient, promptStore, log)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	campaignService := services.NewCampaignService(thePG, log, campaignRepo, stageRunRepo, bucketService)
	contextStore := services.NewContextStore(log, cache, stageRunRepo)
	generationService := services.NewGenerationService(thePG, log, runner, campaignService, contextStore, stageRunRepo, campaignRepo, bucketService, sseHub, sseBus)
	mediaService := services.NewMediaService(thePG, log, campaignService, generationService, ttsClient, renderClient, bucketService, videoAssetRepo, sseHub, sseBus)
	adPublishService := services.NewAdPublishService(thePG, log, fbClient, bucketService, sealer, adAccountRepo, videoAssetRepo, campaignService, sseHub, sseBus)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	campaignHandler := handlers.NewCampaignHandler(log, campaignService)
	generationHandler := handlers.NewGenerationHandler(log, generationService)
	mediaHandler := handlers.NewMediaHandler(log, mediaService)
	adsHandler := handlers.NewAdsHandler(log, adPublishService)
	sseHandler := handlers.NewSSEHandler(log, sseHub, campaignService)

	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		CampaignHandler:   campaignHandler,
		GenerationHandler: generationHandler,
		MediaHandler:      mediaHandler,
		AdsHandler:        adsHandler,
		SSEHandler:        sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
