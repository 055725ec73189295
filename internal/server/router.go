package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/adforge/adforge-backend/internal/handlers"
	"github.com/adforge/adforge-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	CampaignHandler   *handlers.CampaignHandler
	GenerationHandler *handlers.GenerationHandler
	MediaHandler      *handlers.MediaHandler
	AdsHandler        *handlers.AdsHandler
	SSEHandler        *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("adforge-backend"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/logout", cfg.AuthHandler.Logout)

	// Campaigns
	protected.POST("/campaigns", cfg.CampaignHandler.Create)
	protected.GET("/campaigns", cfg.CampaignHandler.List)
	protected.GET("/campaigns/:campaignID", cfg.CampaignHandler.Get)
	protected.DELETE("/campaigns/:campaignID", cfg.CampaignHandler.Delete)
	protected.POST("/campaigns/:campaignID/document", cfg.CampaignHandler.UploadDocument)

	// Generation
	protected.POST("/campaigns/:campaignID/analyze", cfg.GenerationHandler.Analyze)
	protected.POST("/campaigns/:campaignID/hooks", cfg.GenerationHandler.GenerateHooks)
	protected.POST("/campaigns/:campaignID/scripts", cfg.GenerationHandler.GenerateScripts)
	protected.GET("/campaigns/:campaignID/stages", cfg.GenerationHandler.StageResults)
	protected.GET("/campaigns/:campaignID/angles", cfg.GenerationHandler.AngleTrees)

	// Media
	protected.POST("/campaigns/:campaignID/videos", cfg.MediaHandler.Produce)
	protected.GET("/campaigns/:campaignID/videos", cfg.MediaHandler.List)
	protected.GET("/assets/:assetID/download", cfg.MediaHandler.DownloadURL)

	// Ad accounts and publishing
	protected.POST("/ad-accounts", cfg.AdsHandler.ConnectAccount)
	protected.GET("/ad-accounts", cfg.AdsHandler.ListAccounts)
	protected.DELETE("/ad-accounts/:accountID", cfg.AdsHandler.DisconnectAccount)
	protected.POST("/ads/publish", cfg.AdsHandler.Publish)

	// SSE
	protected.GET("/campaigns/:campaignID/events", cfg.SSEHandler.Subscribe)

	return router
}

func allowedOrigins() []string {
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return []string{"http://localhost:3000", "http://localhost:5173"}
}
