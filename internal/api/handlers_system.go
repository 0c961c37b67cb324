package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/logger"
	"github.com/cloudseek/cloudseek/internal/parser"
	"github.com/cloudseek/cloudseek/internal/provider"
)

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

// ParseResponse pairs a name with its parse.
type ParseResponse struct {
	Name    string              `json:"name"`
	IsVideo bool                `json:"isVideo"`
	Sample  bool                `json:"sample"`
	Parsed  *parser.ParsedTitle `json:"parsed"`
}

// parseName handles GET /api/v1/parse?name=...
func (s *Server) parseName(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}
	return c.JSON(http.StatusOK, ParseResponse{
		Name:    name,
		IsVideo: parser.IsVideoFile(name),
		Sample:  parser.IsSampleFile(name),
		Parsed:  s.deps.Parser.Parse(name),
	})
}

// listProviders handles GET /api/v1/providers
func (s *Server) listProviders(c echo.Context) error {
	kinds := []provider.Kind{}
	if s.deps.Providers != nil {
		kinds = s.deps.Providers.Kinds()
	}
	return c.JSON(http.StatusOK, map[string]any{"providers": kinds})
}

// LogsHandlers handles log-related HTTP endpoints.
type LogsHandlers struct {
	recent  *logger.Recent
	logFile string
}

// NewLogsHandlers creates a new logs handlers instance.
func NewLogsHandlers(recent *logger.Recent, logFile string) *LogsHandlers {
	return &LogsHandlers{recent: recent, logFile: logFile}
}

// RegisterRoutes registers log routes on the given group.
func (h *LogsHandlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetRecentLogs)
	g.GET("/download", h.DownloadLogFile)
}

// GetRecentLogs handles GET /api/v1/logs?queryId=&component=&level=&limit=
func (h *LogsHandlers) GetRecentLogs(c echo.Context) error {
	f := logger.Filter{
		QueryID:   c.QueryParam("queryId"),
		Component: c.QueryParam("component"),
	}
	if lvl := c.QueryParam("level"); lvl != "" {
		f.MinLevel = logger.ParseLevel(lvl)
	}
	if limit := c.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		}
		f.Limit = n
	}
	return c.JSON(http.StatusOK, h.recent.Entries(f))
}

// DownloadLogFile serves the current log file for download.
func (h *LogsHandlers) DownloadLogFile(c echo.Context) error {
	if h.logFile == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no log file configured")
	}
	if _, err := os.Stat(h.logFile); os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, "log file not found")
	}
	return c.Attachment(h.logFile, logger.FileName)
}
