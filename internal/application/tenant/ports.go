package tenant

import (
	"context"
	"time"

	"github.com/jhoicas/comercio-api/internal/application/notification"
	"github.com/jhoicas/comercio-api/internal/application/saga"
)

// Lock candado distribuido obtenido por Locker.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializa el aprovisionamiento por NIT. Devuelve domain.ErrConflict si otro proceso lo tiene.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RateLimiter limita intentos por clave en una ventana fija.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Notifier publica avisos sin bloquear; la entrega es de mejor esfuerzo.
type Notifier interface {
	Publish(ctx context.Context, ev notification.Event)
}

// Metrics observa los resultados de las sagas.
type Metrics interface {
	saga.Observer
	SagaOutcome(flow, outcome string, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) Compensation(string, string, bool)        {}
func (nopMetrics) SagaOutcome(string, string, time.Duration) {}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, notification.Event) {}

// Config parámetros de los flujos de tenant.
type Config struct {
	DefaultStoreName   string
	Plan               string
	StoreLimit         int
	UserLimit          int
	InvoiceLimit       int
	SecurityCodeLength int
	PhoneRegion        string
	VerifyTaxIDDigit   bool
	JoinCooldown       time.Duration
	LockTTL            time.Duration
	StepTimeout        time.Duration
}
