package provider

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/cloudseek/cloudseek/internal/media"
)

// RateLimited throttles every call to the wrapped provider through a shared
// token bucket.
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

var _ Provider = (*RateLimited)(nil)

// NewRateLimited wraps p. A non-positive rps disables limiting.
func NewRateLimited(p Provider, rps float64, burst int) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: p, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Kind() Kind {
	return r.next.Kind()
}

func (r *RateLimited) BulkList(ctx context.Context, apiKey string) ([]*media.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.BulkList(ctx, apiKey)
}

func (r *RateLimited) SearchByTitle(ctx context.Context, apiKey, term string, threshold float64) ([]*media.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.SearchByTitle(ctx, apiKey, term, threshold)
}

func (r *RateLimited) GetDetails(ctx context.Context, apiKey, id string) (*media.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.GetDetails(ctx, apiKey, id)
}

// BuildStreamURL is not throttled.
func (r *RateLimited) BuildStreamURL(ctx context.Context, apiKey, candidateID string, file *media.VideoFile) (string, error) {
	return r.next.BuildStreamURL(ctx, apiKey, candidateID, file)
}
