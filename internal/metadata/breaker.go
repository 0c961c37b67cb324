package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/metrics"
)

// BreakerConfig configures the circuit breakers around each capability.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig opens after five consecutive failures and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker guards a Provider with one circuit breaker per capability so a
// failing anime catalog does not short-circuit title lookups.
type Breaker struct {
	next Provider

	episodes *gobreaker.CircuitBreaker[*media.EpisodeMapping]
	titles   *gobreaker.CircuitBreaker[[]AlternateTitle]
	anime    *gobreaker.CircuitBreaker[[]AnimeSeason]
}

var _ Provider = (*Breaker)(nil)

// NewBreaker wraps next. Breaker state changes are logged and exported to m.
func NewBreaker(next Provider, cfg BreakerConfig, m *metrics.Metrics, logger zerolog.Logger) *Breaker {
	log := logger.With().Str("component", "metadata-breaker").Logger()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}

	return &Breaker{
		next:     next,
		episodes: gobreaker.NewCircuitBreaker[*media.EpisodeMapping](breakerSettings("metadata-episodes", cfg, m, log)),
		titles:   gobreaker.NewCircuitBreaker[[]AlternateTitle](breakerSettings("metadata-titles", cfg, m, log)),
		anime:    gobreaker.NewCircuitBreaker[[]AnimeSeason](breakerSettings("metadata-anime", cfg, m, log)),
	}
}

func breakerSettings(name string, cfg BreakerConfig, m *metrics.Metrics, log zerolog.Logger) gobreaker.Settings {
	m.SetBreakerState(name, 0)
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Missing data and callers giving up are not collaborator faults.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
			m.SetBreakerState(name, stateValue(to))
		},
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	v, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return v, fmt.Errorf("%w: %s: %w", ErrUnavailable, cb.Name(), err)
	}
	return v, err
}

func (b *Breaker) ResolveAbsoluteEpisode(ctx context.Context, id string, season, episode int) (*media.EpisodeMapping, error) {
	return execute(b.episodes, func() (*media.EpisodeMapping, error) {
		return b.next.ResolveAbsoluteEpisode(ctx, id, season, episode)
	})
}

func (b *Breaker) FetchAlternateTitles(ctx context.Context, id string, contentType media.ContentType) ([]AlternateTitle, error) {
	return execute(b.titles, func() ([]AlternateTitle, error) {
		return b.next.FetchAlternateTitles(ctx, id, contentType)
	})
}

func (b *Breaker) FetchAnimeSeasons(ctx context.Context, query string) ([]AnimeSeason, error) {
	return execute(b.anime, func() ([]AnimeSeason, error) {
		return b.next.FetchAnimeSeasons(ctx, query)
	})
}
