// Package http implements the REST API and the websocket endpoint of the
// progress service.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ivnmtz09/yonna-akademia/internal/app"
	"github.com/ivnmtz09/yonna-akademia/internal/interface/http/handlers"
	"github.com/ivnmtz09/yonna-akademia/internal/interface/ws"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config is the listener and middleware configuration.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// AllowedOrigins feeds the CORS middleware. Empty sends no CORS headers.
	AllowedOrigins []string

	// RateLimitPerMinute is per client IP. 0 disables limiting.
	RateLimitPerMinute int

	// TrustedProxies are the proxies whose X-Forwarded-For is honoured.
	TrustedProxies []string
}

// DefaultConfig listens on :8080 with permissive CORS.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 300,
	}
}

// Address is the host:port to listen on.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains everything the routes call into.
type Dependencies struct {
	App      *app.App
	Verifier *handlers.TokenVerifier

	// WS serves /api/v1/ws. Nil disables the endpoint.
	WS *ws.Handler

	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	limiter    *handlers.RateLimiter
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates the server and its routes.
func NewServer(config Config, deps Dependencies) (*Server, error) {
	if deps.App == nil {
		return nil, errors.New("http: app is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("http: token verifier is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewNoopHealthChecker()
	}

	s := &Server{
		config: config,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger.With(logger.Component("http")),
	}
	if err := s.engine.SetTrustedProxies(config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("http: invalid trusted proxies: %w", err)
	}
	if config.RateLimitPerMinute > 0 {
		s.limiter = handlers.NewRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.engine,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupMiddleware() {
	s.engine.Use(
		handlers.RequestID(s.logger),
		handlers.RequestLogger(s.logger),
		handlers.Recovery(s.logger, s.deps.App.Dispatcher),
	)
	if len(s.config.AllowedOrigins) > 0 {
		s.engine.Use(handlers.CORS(s.config.AllowedOrigins))
	}
	if s.limiter != nil {
		s.engine.Use(handlers.RateLimit(s.limiter))
	}
}

func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)
	s.engine.GET("/live", s.handleLive)
	s.engine.GET("/metrics", s.handleMetrics)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Authenticated Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	api := s.engine.Group("/api/v1", handlers.Auth(s.deps.Verifier))

	api.POST("/users", s.handleRegisterUser)
	api.PUT("/users/:id/role", s.handleChangeRole)
	api.POST("/users/:id/xp", s.handleGrantXP)

	api.POST("/courses", s.handleCreateCourse)
	api.POST("/courses/:id/quizzes", s.handleCreateQuiz)
	api.POST("/courses/:id/enroll", s.handleEnroll)
	api.GET("/courses/:id/progress", s.handleGetCourseProgress)
	api.GET("/progress", s.handleListCourseProgress)

	api.POST("/quizzes/:id/attempts", s.handleSubmitAttempt)

	api.GET("/notifications", s.handleListNotifications)
	api.GET("/notifications/unread-count", s.handleUnreadCount)
	api.POST("/notifications/:id/read", s.handleMarkRead)
	api.POST("/notifications/read-all", s.handleMarkAllRead)

	api.GET("/stats/overview", s.handleStatsOverview)

	if s.deps.WS != nil {
		api.GET("/ws", s.handleWebSocket)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("http: server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("listening", logger.String("address", s.config.Address()))
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether Start has been called without Shutdown.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime is zero when the server is not running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// queryInt reads an integer query parameter with a default value.
func queryInt(c *gin.Context, key string, defaultValue int) int {
	v := c.Query(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// queryBool reads a boolean query parameter.
func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
