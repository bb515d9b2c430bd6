package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// rateLimited spaces calls to the wrapped generator evenly over a minute.
type rateLimited struct {
	next    TextGenerator
	limiter *rate.Limiter
}

// NewRateLimited wraps next so that at most rpm requests start per minute.
// rpm <= 0 returns next unchanged.
func NewRateLimited(next TextGenerator, rpm int) TextGenerator {
	if rpm <= 0 {
		return next
	}
	return &rateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

func (r *rateLimited) GenerateContent(ctx context.Context, req Request) (ContentResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	return r.next.GenerateContent(ctx, req)
}

func (r *rateLimited) Close() error {
	return Close(r.next)
}
