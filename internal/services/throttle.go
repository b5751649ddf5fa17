package services

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterService throttles solve submissions per submitting principal
// (an operator or an API key), so one caller hammering the solve endpoint
// can't starve the solver pool for everyone else.
type RateLimiterService struct {
	mu              sync.RWMutex
	limiters        map[string]*rate.Limiter // key: principal ID
	requestsPerSec  int
	burstSize       int
}

// NewRateLimiterService creates a new rate limiter service. requestsPerSec
// and burstSize come from config and apply uniformly to every principal.
func NewRateLimiterService(requestsPerSec, burstSize int) *RateLimiterService {
	return &RateLimiterService{
		limiters:       make(map[string]*rate.Limiter),
		requestsPerSec: requestsPerSec,
		burstSize:      burstSize,
	}
}

// GetLimiter returns or creates the rate limiter for a principal.
func (s *RateLimiterService) GetLimiter(principal string) *rate.Limiter {
	s.mu.RLock()
	limiter, exists := s.limiters[principal]
	s.mu.RUnlock()

	if exists {
		return limiter
	}

	return s.createLimiter(principal)
}

func (s *RateLimiterService) createLimiter(principal string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock.
	if limiter, exists := s.limiters[principal]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(s.requestsPerSec), s.burstSize)
	s.limiters[principal] = limiter
	return limiter
}

// Wait blocks until a solve submission from principal is allowed under the
// rate limit, or ctx is cancelled.
func (s *RateLimiterService) Wait(ctx context.Context, principal string) error {
	return s.GetLimiter(principal).Wait(ctx)
}

// Allow reports whether a solve submission from principal can proceed
// immediately, without blocking.
func (s *RateLimiterService) Allow(principal string) bool {
	return s.GetLimiter(principal).Allow()
}
