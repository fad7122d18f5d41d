package email

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedSender throttles another Sender to stay under the provider's
// request quota. Waiting respects ctx, so a dispatch timeout also bounds the wait.
type RateLimitedSender struct {
	next    Sender
	limiter *rate.Limiter
}

// NewRateLimitedSender allows perSecond sends per second with a burst of one.
// A non-positive perSecond disables throttling.
func NewRateLimitedSender(next Sender, perSecond float64) *RateLimitedSender {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimitedSender{next: next, limiter: rate.NewLimiter(limit, 1)}
}

// Send waits for a token and forwards the request.
func (s *RateLimitedSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return SendResult{}, fmt.Errorf("email rate limit: %w", err)
	}
	return s.next.Send(ctx, req)
}
