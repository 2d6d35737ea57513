// Package api is the control-plane HTTP surface: lifecycle commands, status,
// config updates and the decision feed. The UI is a pure read-only subscriber;
// nothing here drives computation.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/store"
)

// Server wires HTTP endpoints around the supervisor.
type Server struct {
	router *gin.Engine
	sup    interfaces.Supervisor
	cfg    *store.Store
	log    interfaces.DecisionStore
	hub    *Hub

	httpSrv *http.Server
}

func NewServer(sup interfaces.Supervisor, cfg *store.Store, log interfaces.DecisionStore, hub *Hub) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	s := &Server{router: r, sup: sup, cfg: cfg, log: log, hub: hub}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/ws/decisions", s.hub.handle)

	trading := s.router.Group("/api/v1/trading")
	{
		trading.POST("/start", s.start)
		trading.POST("/stop", s.stop)
		trading.POST("/emergency-stop", s.emergencyStop)
		trading.POST("/clear-emergency", s.clearEmergency)
		trading.GET("/status", s.status)
		trading.GET("/positions", s.positions)
		trading.GET("/decisions", s.decisions)
		trading.GET("/config", s.getConfig)
		trading.PATCH("/config", s.updateConfig)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
