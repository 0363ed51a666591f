package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lullaby-stack/care-engine/internal/config"
	"github.com/lullaby-stack/care-engine/internal/services"
)

// Server wraps the HTTP server and lifecycle helpers.
type Server struct {
	httpServer *http.Server
}

// NewServer constructs the HTTP server with all routes registered.
func NewServer(cfg config.ServerConfig, svc *services.ScheduleService) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	h := NewHandlers(svc)

	router.GET("/healthz", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/days/:date", h.GetDay)
		v1.POST("/days/:date/events", h.LogEvent)
		v1.POST("/days/:date/events/:id/close", h.CloseEvent)
		v1.POST("/days/:date/events/undo", h.UndoLastEvent)
		v1.POST("/days/:date/solve", h.SolveDay)
		v1.PUT("/days/:date/blocks/:id", h.AdjustBlock)
		v1.DELETE("/days/:date/blocks/:id", h.RemoveBlock)
		v1.POST("/solve-range", h.SolveRange)
		v1.GET("/forecast/:kind", h.Forecast)
		v1.GET("/insights", h.Insights)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
