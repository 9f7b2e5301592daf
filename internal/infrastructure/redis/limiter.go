package redis

import (
	"context"
	"time"

	"github.com/jhoicas/comercio-api/internal/application/tenant"
)

var _ tenant.RateLimiter = (*FixedWindowLimiter)(nil)

// FixedWindowLimiter permite hasta limit intentos por clave en cada ventana.
type FixedWindowLimiter struct {
	client *Client
	limit  int64
	window time.Duration
}

// NewFixedWindowLimiter construye el limitador.
func NewFixedWindowLimiter(c *Client, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: c, limit: int64(limit), window: window}
}

// Allow cuenta el intento y dice si sigue dentro del límite.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.client.IncrWithTTL(ctx, l.client.buildKey(rateLimitPrefix, key), l.window)
	if err != nil {
		return false, err
	}
	return count <= l.limit, nil
}
