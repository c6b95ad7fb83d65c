package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"alphapilot/internal/engine"
	"alphapilot/internal/events"
	"alphapilot/pkg/config"
	"alphapilot/pkg/logger"
)

// Server exposes the engine over HTTP and streams events over websocket.
type Server struct {
	Router *gin.Engine
	engine engine.Service
	bus    *events.Bus

	jwtSecret    string
	adminUser    string
	passwordHash []byte
}

func NewServer(svc engine.Service, bus *events.Bus, cfg *config.Config) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		engine:    svc,
		bus:       bus,
		jwtSecret: cfg.JWTSecret,
		adminUser: cfg.AdminUser,
	}
	if cfg.AdminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			logger.WithModule("api").WithError(err).Error("password hashing failed, auth disabled")
		} else {
			s.passwordHash = hash
		}
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws/events", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/metrics", s.getMetrics)

		api.POST("/auth/login", s.login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.jwtSecret))
		{
			protected.GET("/providers", s.getProviderStats)
			protected.GET("/budget", s.getCostBudget)
			protected.GET("/decisions", s.getDecisions)
			protected.GET("/executions", s.getExecutions)
			protected.GET("/positions", s.getPositions)

			protected.POST("/system/pause", s.pauseEngine)
			protected.POST("/system/resume", s.resumeEngine)
			protected.POST("/cycles/:symbol", s.triggerCycle)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
