package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"github.com/jhoicas/comercio-api/internal/application/tenant"
	"github.com/jhoicas/comercio-api/internal/domain"
)

var _ tenant.Locker = (*Locker)(nil)

// Locker candado distribuido por clave (NIT normalizado) con redislock.
type Locker struct {
	client *Client
	locks  *redislock.Client
	retry  redislock.RetryStrategy
}

// NewLocker construye el candado. wait es cuánto se reintenta antes de rendirse; 0 no espera.
func NewLocker(c *Client, wait time.Duration) *Locker {
	retry := redislock.NoRetry()
	if wait > 0 {
		retry = redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), int(wait/(50*time.Millisecond)))
	}
	return &Locker{client: c, locks: redislock.New(c.raw), retry: retry}
}

// Obtain toma el candado; si otro proceso lo tiene devuelve domain.ErrConflict.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (tenant.Lock, error) {
	lock, err := l.locks.Obtain(ctx, l.client.buildKey(lockPrefix, key), ttl, &redislock.Options{RetryStrategy: l.retry})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("%w: hay un aprovisionamiento en curso para esta identificación", domain.ErrConflict)
		}
		return nil, fmt.Errorf("obtener candado: %w", err)
	}
	return &heldLock{lock: lock}, nil
}

type heldLock struct {
	lock *redislock.Lock
}

// Release libera el candado; si ya expiró no es error.
func (h *heldLock) Release(ctx context.Context) error {
	if err := h.lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return err
	}
	return nil
}
