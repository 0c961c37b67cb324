package search

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cloudseek/cloudseek/internal/media"
)

// ProviderKeyHeader carries the provider API key so it stays out of URLs.
const ProviderKeyHeader = "X-Provider-Key"

// Searcher runs a query.
type Searcher interface {
	Coordinate(ctx context.Context, req SearchRequest) (*Result, error)
}

// Handlers provides HTTP handlers for search operations.
type Handlers struct {
	searcher Searcher
}

// NewHandlers creates new search handlers.
func NewHandlers(searcher Searcher) *Handlers {
	return &Handlers{searcher: searcher}
}

// RegisterRoutes registers the search routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Search)
	g.POST("", h.SearchJSON)
}

// QueryParams are the GET parameters. Season and episode are strings so an
// absent value can be told apart from 0.
type QueryParams struct {
	Title     string `query:"title"`
	Type      string `query:"type"`
	ImdbID    string `query:"imdbId"`
	Season    string `query:"season"`
	Episode   string `query:"episode"`
	Provider  string `query:"provider"`
	Threshold string `query:"threshold"`
}

// Search handles GET /api/v1/search?title=...&type=...&provider=...
func (h *Handlers) Search(c echo.Context) error {
	var params QueryParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request parameters",
		})
	}

	req, err := params.toRequest()
	if err != nil {
		return writeError(c, err, nil)
	}
	req.APIKey = c.Request().Header.Get(ProviderKeyHeader)

	return h.run(c, req)
}

// SearchJSON handles POST /api/v1/search with a JSON SearchRequest body.
func (h *Handlers) SearchJSON(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}
	req.APIKey = c.Request().Header.Get(ProviderKeyHeader)

	return h.run(c, req)
}

func (h *Handlers) run(c echo.Context, req SearchRequest) error {
	result, err := h.searcher.Coordinate(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err, result)
	}
	return c.JSON(http.StatusOK, result)
}

func writeError(c echo.Context, err error, result *Result) error {
	var inputErr *InputError
	switch {
	case errors.As(err, &inputErr):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": inputErr.Error(),
			"field": inputErr.Field,
		})
	case errors.Is(err, ErrQueryTimeout):
		return c.JSON(http.StatusGatewayTimeout, map[string]any{
			"error":  err.Error(),
			"result": result,
		})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": err.Error(),
	})
}

func (p QueryParams) toRequest() (SearchRequest, error) {
	req := SearchRequest{
		Title:    p.Title,
		ImdbID:   p.ImdbID,
		Provider: p.Provider,
	}

	if ct, ok := media.ParseContentType(p.Type); ok {
		req.ContentType = ct
	} else {
		req.ContentType = media.ContentType(p.Type)
	}

	var err error
	if req.Season, err = optionalInt("season", p.Season); err != nil {
		return req, err
	}
	if req.Episode, err = optionalInt("episode", p.Episode); err != nil {
		return req, err
	}

	if s := strings.TrimSpace(p.Threshold); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return req, &InputError{Field: "threshold", Reason: "must be a number", Err: err}
		}
		req.FuzzyThreshold = &v
	}
	return req, nil
}

func optionalInt(field, s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, &InputError{Field: field, Reason: "must be an integer", Err: err}
	}
	return &v, nil
}
