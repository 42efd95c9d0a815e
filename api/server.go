package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictive-scaler/api/handlers"
	"github.com/OldStager01/predictive-scaler/api/middleware"
	"github.com/OldStager01/predictive-scaler/api/websocket"
	"github.com/OldStager01/predictive-scaler/internal/auth"
	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/internal/metrics"
	"github.com/OldStager01/predictive-scaler/internal/pools"
	"github.com/OldStager01/predictive-scaler/pkg/config"
	"github.com/OldStager01/predictive-scaler/pkg/database"
	"github.com/OldStager01/predictive-scaler/pkg/database/queries"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// Engine is what the server needs from the orchestrator.
type Engine interface {
	handlers.Engine
	SubscribeAll() <-chan *models.Event
}

// Deps are the server collaborators. Only Engine is required.
type Deps struct {
	Engine   Engine
	DB       *database.DB
	Redis    handlers.Pinger
	Metrics  *metrics.Metrics
	Counters *pools.RequestCounters
	Cache    handlers.ResponseCache
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	deps        Deps
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var authService *auth.Service
	if cfg.API.AdminSecret != "" {
		authService = auth.NewService(cfg.API.AdminSecret, cfg.API.AdminTokenTTL, cfg.API.AdminIssuer)
	} else {
		logger.Warn("No admin secret configured, scaling trigger is unauthenticated")
	}

	s := &Server{
		router:      gin.New(),
		config:      cfg,
		deps:        deps,
		authService: authService,
		wsHub:       websocket.NewHub(&cfg.WebSocket),
	}

	s.setupMiddleware()
	s.setupRoutes()

	go s.wsHub.Run()

	s.wsBridge = websocket.NewEventBridge(s.wsHub, deps.Engine.SubscribeAll())
	s.wsBridge.Start()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(s.config.API.CORS))
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger("/health", "/health/live", "/health/ready", s.metricsPath()))
	s.router.Use(middleware.Instrument(s.deps.Metrics, s.deps.Counters))
	s.router.Use(middleware.RequestSizeLimit(1 << 20))

	rateLimiter := middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) metricsPath() string {
	if s.config.Prometheus.Path == "" {
		return "/metrics"
	}
	return s.config.Prometheus.Path
}

func (s *Server) setupRoutes() {
	limits := handlers.LimitsFromConfig(s.config.API)

	var (
		actionStore     handlers.ActionStore
		predictionStore handlers.PredictionStore
		modelStore      handlers.ModelStore
		healthDeps      = map[string]handlers.Pinger{"redis": s.deps.Redis}
	)
	if s.deps.DB != nil {
		actionStore = queries.NewScalingActionRepository(s.deps.DB.DB)
		predictionStore = queries.NewPredictionRepository(s.deps.DB.DB)
		modelStore = queries.NewModelVersionRepository(s.deps.DB.DB)
		healthDeps["database"] = s.deps.DB
	}

	healthHandler := handlers.NewHealthHandler(s.deps.Engine, healthDeps)
	scalingHandler := handlers.NewScalingHandler(s.deps.Engine, actionStore, predictionStore, limits)
	modelHandler := handlers.NewModelHandler(s.deps.Engine, modelStore)
	historyHandler := handlers.NewHistoryHandler(s.deps.Engine, s.deps.Cache, limits)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	if s.deps.Metrics != nil && s.config.Prometheus.Enabled {
		s.router.GET(s.metricsPath(), gin.WrapH(s.deps.Metrics.Handler()))
	}

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	endpointLimits := middleware.NewEndpointRateLimiter()
	endpointLimits.AddEndpoint("/api/v1/scaling/trigger", 10, time.Minute)

	v1 := s.router.Group("/api/v1")
	v1.Use(endpointLimits.Middleware())
	{
		v1.GET("/scaling/recommendations", scalingHandler.Recommendations)
		v1.POST("/scaling/trigger", middleware.AdminAuth(s.authService), scalingHandler.Trigger)
		v1.GET("/scaling/actions", scalingHandler.Actions)
		v1.GET("/scaling/actions/stats", scalingHandler.ActionStats)
		v1.GET("/scaling/predictions", scalingHandler.Predictions)

		v1.GET("/model", modelHandler.Get)
		v1.GET("/history", historyHandler.Get)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	idle := s.config.API.IdleTimeout
	if idle <= 0 {
		idle = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  idle,
	}

	logger.Infof("API server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.wsBridge.Stop()
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
