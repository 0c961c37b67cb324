//nolint:revive // Package name 'api' is intentionally generic for the HTTP API layer
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/cloudseek/cloudseek/internal/api/middleware"
	"github.com/cloudseek/cloudseek/internal/api/ratelimit"
	"github.com/cloudseek/cloudseek/internal/cache"
	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/logger"
	"github.com/cloudseek/cloudseek/internal/metrics"
	"github.com/cloudseek/cloudseek/internal/parser"
	"github.com/cloudseek/cloudseek/internal/provider"
	"github.com/cloudseek/cloudseek/internal/search"
)

// Deps are the services the API exposes. Only Search is required.
type Deps struct {
	Config    config.ServerConfig
	Search    search.Searcher
	Cache     *cache.Cache
	Parser    *parser.Parser
	Metrics   *metrics.Metrics
	Providers *provider.Registry
	Logs      *logger.Recent
	// LogFile is the rotated log file served by /api/v1/logs/download.
	LogFile string
}

// Server handles HTTP requests for the CloudSeek API.
type Server struct {
	echo    *echo.Echo
	logger  zerolog.Logger
	deps    Deps
	limiter *ratelimit.IPLimiter
	stop    context.CancelFunc
}

// NewServer creates a new API server instance.
func NewServer(deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = JSONSerializer{}

	if deps.Parser == nil {
		deps.Parser = parser.New(deps.Cache)
	}

	s := &Server{
		echo:   e,
		logger: logger.With().Str("component", "api").Logger(),
		deps:   deps,
	}
	if deps.Config.SearchRateLimit > 0 {
		s.limiter = ratelimit.NewIPLimiter(deps.Config.SearchRateLimit, ratelimit.DefaultWindow)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestID())

	s.echo.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, search.ProviderKeyHeader},
	}))

	s.echo.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ev := s.logger.Info()
			if v.Error != nil {
				ev = s.logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Str("requestId", v.RequestID).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.echo.Use(middleware.Metrics(s.deps.Metrics))
	s.echo.Use(middleware.SecurityHeaders())

	s.echo.Use(echomw.GzipWithConfig(echomw.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	if s.deps.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	api := s.echo.Group("/api/v1")

	searchGroup := api.Group("/search")
	if s.limiter != nil {
		searchGroup.Use(s.limiter.Middleware())
	}
	search.NewHandlers(s.deps.Search).RegisterRoutes(searchGroup)

	if s.deps.Cache != nil {
		NewCacheHandlers(s.deps.Cache).RegisterRoutes(api.Group("/cache"))
	}

	api.GET("/parse", s.parseName)
	api.GET("/providers", s.listProviders)

	if s.deps.Logs != nil {
		NewLogsHandlers(s.deps.Logs, s.deps.LogFile).RegisterRoutes(api.Group("/logs"))
	}
}

// Start begins listening for HTTP requests. It blocks until the server stops.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")

	if s.limiter != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stop = cancel
		s.limiter.StartCleanup(ctx, 5*time.Minute)
	}

	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	if s.stop != nil {
		s.stop()
	}
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
