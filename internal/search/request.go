// Package search answers whether a movie or episode exists among a
// provider's stored items, and which files it is.
package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudseek/cloudseek/internal/media"
)

var (
	// ErrInvalidRequest is wrapped by every InputError.
	ErrInvalidRequest = errors.New("invalid search request")
	// ErrQueryTimeout is returned when the query-level deadline expires.
	ErrQueryTimeout = errors.New("search query timed out")
)

// InputError describes a malformed request. The query never starts.
type InputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidRequest, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidRequest) hold for every InputError.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// SearchRequest is one query. It is read-only once Coordinate starts.
type SearchRequest struct {
	Title       string            `json:"title"`
	ContentType media.ContentType `json:"contentType"`
	ImdbID      string            `json:"imdbId,omitempty"`
	Season      *int              `json:"season,omitempty"`
	Episode     *int              `json:"episode,omitempty"`
	Provider    string            `json:"provider"`
	APIKey      string            `json:"-"`
	// FuzzyThreshold overrides the configured threshold when set.
	// 0 is exact, 1 matches anything.
	FuzzyThreshold *float64 `json:"fuzzyThreshold,omitempty"`
}

// Validate checks the request shape. Provider resolution is checked by the
// coordinator against its registry.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &InputError{Field: "title", Reason: "is required"}
	}

	switch r.ContentType {
	case media.ContentMovie:
	case media.ContentSeries:
		if r.Season == nil || r.Episode == nil {
			return &InputError{Field: "season/episode", Reason: "are required for series"}
		}
		if *r.Season < 0 {
			return &InputError{Field: "season", Reason: "must not be negative"}
		}
		if *r.Episode < 1 {
			return &InputError{Field: "episode", Reason: "must be at least 1"}
		}
	default:
		return &InputError{Field: "contentType", Reason: fmt.Sprintf("unsupported value %q", r.ContentType)}
	}

	if r.FuzzyThreshold != nil && (*r.FuzzyThreshold < 0 || *r.FuzzyThreshold > 1) {
		return &InputError{Field: "fuzzyThreshold", Reason: "must be within [0, 1]"}
	}
	if strings.TrimSpace(r.Provider) == "" {
		return &InputError{Field: "provider", Reason: "is required"}
	}
	return nil
}

func (r *SearchRequest) isSeries() bool {
	return r.ContentType == media.ContentSeries
}

// Phase is a coordinator state.
type Phase string

const (
	PhasePreparing       Phase = "preparing"
	PhaseTitleMatching   Phase = "title_matching"
	PhaseContentAnalysis Phase = "content_analysis"
	PhaseAnimeFallback   Phase = "anime_fallback"
	PhaseDone            Phase = "done"
)

// Result is the terminal output of a query.
type Result struct {
	QueryID         string                `json:"queryId"`
	Results         []*media.MatchedVideo `json:"results"`
	AbsoluteEpisode *media.EpisodeMapping `json:"absoluteEpisode,omitempty"`
	Terms           []string              `json:"terms,omitempty"`
	// Phases lists the states the query passed through, in order.
	Phases []Phase `json:"phases"`
}
