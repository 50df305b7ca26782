package restapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/engine"
	"github.com/shirokuma-kb/shirokuma/internal/enrich"
	"github.com/shirokuma-kb/shirokuma/internal/logging"
	"github.com/shirokuma-kb/shirokuma/pkg/config"
)

// Server is a read-only HTTP status surface over the Engine Facade.
type Server struct {
	router     *gin.Engine
	cfg        *config.Config
	eng        *engine.Engine
	httpServer *http.Server
	log        *logging.Logger
}

// NewServer wires a Server over db/cfg, building its own Engine the same
// way internal/mcp.NewServer does.
func NewServer(db *database.Database, cfg *config.Config) *Server {
	log := logging.GetLogger("restapi")

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.RestAPI.CORS {
		router.Use(cors.New(cors.Config{
			AllowMethods:    []string{"GET", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:   []string{"Content-Length"},
			AllowAllOrigins: true,
			MaxAge:          12 * time.Hour,
		}))
	}

	s := &Server{
		router: router,
		cfg:    cfg,
		eng:    engine.New(db, cfg, enrich.NewDefaultEnricher()),
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.health)
		v1.GET("/stats", s.stats)
		v1.GET("/items", s.listItems)
		v1.GET("/items/:id", s.getItem)
		v1.GET("/current-state", s.currentState)
		v1.GET("/tags", s.listTags)
		v1.GET("/statuses", s.listStatuses)
		v1.GET("/types", s.listTypes)
		v1.GET("/search", s.search)
		v1.GET("/tools", s.listTools)
	}
}

// Router exposes the underlying gin engine for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// StartWithContext runs the HTTP server until ctx is cancelled, then shuts
// it down gracefully.
func (s *Server) StartWithContext(ctx context.Context, shutdownTimeout time.Duration) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.RestAPI.Host, s.cfg.RestAPI.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("starting REST API server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}
