package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FCHEHIDI/lb-analytics/api/handlers"
	"github.com/FCHEHIDI/lb-analytics/api/middleware"
	"github.com/FCHEHIDI/lb-analytics/api/websocket"
	"github.com/FCHEHIDI/lb-analytics/internal/metrics"
	"github.com/FCHEHIDI/lb-analytics/internal/warehouse"
	"github.com/FCHEHIDI/lb-analytics/pkg/config"
	"github.com/FCHEHIDI/lb-analytics/pkg/database"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// EventSource provides the event stream forwarded to websocket clients.
type EventSource interface {
	SubscribeAllEvents() <-chan *models.Event
}

// Server is the read-only HTTP surface over the warehouse plus the live
// event stream. There are no write endpoints: ingestion happens only
// through the pipeline.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
	db         *database.DB
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
}

func NewServer(cfg *config.Config, db *database.DB, wh *warehouse.Warehouse, source EventSource) *Server {
	if cfg.App.Mode == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	wsHub := websocket.NewHub(cfg.WebSocket)

	s := &Server{
		router: router,
		config: cfg.API,
		db:     db,
		wsHub:  wsHub,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(cfg, wh)

	go wsHub.Run()

	if source != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, source.SubscribeAllEvents())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware(cfg *config.Config) {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(cfg.API.CORS))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RateLimit(cfg.API.RateLimit, time.Minute))

	// The anomaly and report listings scan the derived views; they get a
	// quarter of the global budget.
	heavy := cfg.API.RateLimit / 4
	if heavy < 1 {
		heavy = 1
	}
	endpointLimits := middleware.NewEndpointRateLimiter()
	endpointLimits.AddEndpoint("/api/v1/anomalies", heavy, time.Minute)
	endpointLimits.AddEndpoint("/api/v1/reports", heavy, time.Minute)
	s.router.Use(endpointLimits.Middleware())
}

func (s *Server) setupRoutes(cfg *config.Config, wh *warehouse.Warehouse) {
	healthHandler := handlers.NewHealthHandler(s.db)
	analyticsHandler := handlers.NewAnalyticsHandler(wh, cfg.API.DefaultLimit, cfg.API.MaxLimit)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	if cfg.Metrics.Enabled {
		s.router.GET("/metrics", gin.WrapH(metrics.Get().Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/kpis", analyticsHandler.GetKPIs)
		v1.GET("/servers/health", analyticsHandler.GetServerHealth)
		v1.GET("/anomalies", analyticsHandler.GetAnomalies)
		v1.GET("/reports", analyticsHandler.ListReports)
		v1.GET("/reports/:id", analyticsHandler.GetReport)
		v1.GET("/quality", analyticsHandler.GetQuality)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
