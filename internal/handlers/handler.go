package handlers

import (
	"mltm/internal/logger"
	"mltm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health endpoints
	router.GET("/health", h.health)
	router.GET("/health/db", h.healthDB)

	// Operator auth
	h.registerAuthRoutes(router)

	// Device-facing ingestion, deliberately unauthenticated: devices race
	// provisioning and carry no credentials.
	h.registerIngestRoutes(router)

	// Versioned read API (protected)
	h.registerAPIRoutes(router)

	// Live status stream over WebSocket, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerIngestRoutes(r *gin.Engine) {
	ingest := r.Group("/ingest")
	{
		// Body example: {"machine_code":"CNC1","color":"green","at":"2024-05-01T08:00:00Z"}
		ingest.POST("", h.postIngest)
		ingest.POST("/heartbeat", h.postHeartbeat)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		api.GET("/machines", h.getMachines)
		api.GET("/colors", h.getColors)
		api.GET("/overview/today", h.getOverviewToday)

		machine := api.Group("/machines/:code")
		{
			machine.GET("/status/current", h.getCurrentStatus)
			machine.GET("/status/by-date", h.getDayBreakdown)
			machine.GET("/status/weekly", h.getWeekBreakdown)
			machine.GET("/timeline", h.getTimeline)
		}
	}
}
