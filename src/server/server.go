package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"request-monitor/src/interfaces"
	"request-monitor/src/logger"
	"request-monitor/src/models"
	"request-monitor/src/utils"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html static/*
var assets embed.FS

const shutdownTimeout = 5 * time.Second

var _ interfaces.IDataExchanger = (*DashboardServer)(nil)

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

type DashboardServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Renderer  interfaces.IPageRenderer
	Health    interfaces.IHealthProbe
	History   *utils.RenderHistory
	Scheduler *utils.RefreshScheduler
	Metrics   *Metrics

	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients, owned by the hub loop
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	broadcast  chan *pagePush
	register   chan *Client
	unregister chan *Client

	done     chan struct{}
	stopOnce sync.Once
	started  time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(
	cfg *models.MConfig,
	renderer interfaces.IPageRenderer,
	health interfaces.IHealthProbe,
	history *utils.RenderHistory,
	scheduler *utils.RefreshScheduler,
	log *logger.Logger,
) (*DashboardServer, error) {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:    cfg,
		Logger:    log,
		Renderer:  renderer,
		Health:    health,
		History:   history,
		Scheduler: scheduler,
		Metrics:   NewMetrics(),
		engine:    gin.New(),
		clients:   make(map[*Client]struct{}),
		// Buffered so a slow hub never stalls the refresh loop
		broadcast:  make(chan *pagePush, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		started:    time.Now(),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), s.Metrics.Middleware())

	// Local dashboards only
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.engine.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}
	s.engine.StaticFS("/static", http.FS(static))

	s.setupRoutes()
	return s, nil
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	// HTML pages
	s.engine.GET("/", s.indexPage)
	s.engine.GET("/pages/:name", s.chartPage)
	s.engine.GET("/logs", s.logsPage)

	// JSON API
	api := s.engine.Group("/api")
	api.GET("/pages", s.getPages)
	api.GET("/pages/:name", s.getPage)
	api.GET("/services", s.getServices)
	api.GET("/logs", s.getLogs)
	api.GET("/metrics", s.getMetrics)
	api.GET("/config", s.getConfig)
	api.GET("/health", s.getHealth)

	// Prometheus scrape endpoint
	s.engine.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	// Live refresh
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *DashboardServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves HTTP and runs the hub and refresh loops until ctx is cancelled.
func (s *DashboardServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	s.Logger.Info("Dashboard listening on http://%s", addr)

	go s.handleWebsockets()
	if s.Scheduler != nil {
		go s.Scheduler.Run(s.done, s.refreshSubscriptions)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		s.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = s.httpServer.Shutdown(ctx)
		}
		s.Logger.Info("Server stopped")
	})
	return err
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------

// render wraps the renderer with Prometheus accounting.
func (s *DashboardServer) render(ctx context.Context, page, service string, hours int) (*models.MChartPayload, error) {
	start := time.Now()
	payload, err := s.Renderer.RenderPage(ctx, page, service, hours)
	s.Metrics.ObserveRender(page, time.Since(start), payload, err)
	return payload, err
}
