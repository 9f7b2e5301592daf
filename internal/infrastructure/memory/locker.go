package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/comercio-api/internal/application/tenant"
	"github.com/jhoicas/comercio-api/internal/domain"
)

var (
	_ tenant.Locker      = (*Locker)(nil)
	_ tenant.RateLimiter = (*Limiter)(nil)
)

// Locker candado por clave dentro del proceso. Sirve cuando no hay Redis (una sola réplica).
type Locker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocker crea el candado local.
func NewLocker() *Locker {
	return &Locker{held: map[string]time.Time{}, now: time.Now}
}

// Obtain toma la clave; si está tomada y no venció devuelve domain.ErrConflict.
func (l *Locker) Obtain(_ context.Context, key string, ttl time.Duration) (tenant.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, fmt.Errorf("%w: hay un aprovisionamiento en curso para esta identificación", domain.ErrConflict)
	}
	exp := now.Add(ttl)
	l.held[key] = exp
	return &localLock{l: l, key: key, exp: exp}, nil
}

type localLock struct {
	l   *Locker
	key string
	exp time.Time
}

func (h *localLock) Release(context.Context) error {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()
	// sólo libera si nadie la volvió a tomar tras vencer
	if exp, ok := h.l.held[h.key]; ok && exp.Equal(h.exp) {
		delete(h.l.held, h.key)
	}
	return nil
}

// Limiter ventana fija por clave dentro del proceso.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewLimiter crea el limitador local.
func NewLimiter(limit int, w time.Duration) *Limiter {
	return &Limiter{limit: limit, window: w, windows: map[string]*window{}, now: time.Now}
}

func (l *Limiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, nil
}
