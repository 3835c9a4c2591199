// Package resilience wraps outbound calls to embedding and generation
// services with a per-attempt timeout, exponential backoff retries and a
// client-side rate limit.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
	"repologic/internal/domain"
)

type Config struct {
	Timeout           time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	RequestsPerSecond float64 // <= 0 disables limiting
	Burst             int
}

type Policy struct {
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewPolicy(cfg Config, logger *slog.Logger) *Policy {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger,
	}
}

// StatusError is a non-2xx response from a remote service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service returned status %d: %s", e.Code, e.Body)
}

// Retryable reports whether another attempt may succeed: rate limiting and
// server errors are retried, other client errors are not.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}

type retryable interface {
	Retryable() bool
}

// Do runs op under the policy. The returned error always matches
// domain.ErrExternalService; an exhausted deadline also matches
// domain.ErrTimeout.
func Do[T any](ctx context.Context, p *Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		var zero T
		if err := p.limiter.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		}
		defer cancel()

		res, err := op(callCtx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return zero, backoff.Permanent(err)
		}
		var r retryable
		if errors.As(err, &r) && !r.Retryable() {
			return zero, backoff.Permanent(err)
		}
		p.logger.Warn("outbound call failed", "call", name, "attempt", attempt, "error", err)
		return zero, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialBackoff
	b.MaxInterval = p.cfg.MaxBackoff

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.cfg.MaxRetries+1)),
	)
	if err == nil {
		return res, nil
	}

	var zero T
	if errors.Is(err, domain.ErrExternalService) {
		return zero, err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return zero, fmt.Errorf("%s: %w: %w", name, domain.ErrTimeout, err)
	}
	return zero, fmt.Errorf("%s: %w: %w", name, domain.ErrExternalService, err)
}
