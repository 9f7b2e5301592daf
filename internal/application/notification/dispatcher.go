package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

// Event aviso a entregar. Sin Recipients se envía a todos los administradores del tenant.
type Event struct {
	TenantID   string
	Category   string
	Title      string
	Message    string
	Link       string
	CreatedBy  string
	Recipients []string
}

// Options ajustes del despachador.
type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // por evento
}

// Dispatcher entrega notificaciones en segundo plano. Publish nunca bloquea ni
// falla: un error de entrega se registra y no afecta la operación que lo originó.
type Dispatcher struct {
	memberships   repository.MembershipRepository
	notifications repository.NotificationRepository
	log           zerolog.Logger
	opts          Options

	queue  chan Event
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher construye el despachador y arranca sus workers.
func NewDispatcher(memberships repository.MembershipRepository, notifications repository.NotificationRepository, log zerolog.Logger, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	d := &Dispatcher{
		memberships:   memberships,
		notifications: notifications,
		log:           log,
		opts:          opts,
		queue:         make(chan Event, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Publish encola el evento. Si la cola está llena o cerrada, el evento se descarta con un aviso.
func (d *Dispatcher) Publish(_ context.Context, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("tenant_id", ev.TenantID).Msg("despachador cerrado, notificación descartada")
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.Warn().Str("tenant_id", ev.TenantID).Str("category", ev.Category).Msg("cola de notificaciones llena, notificación descartada")
	}
}

// Close deja de aceptar eventos y espera a que se entreguen los encolados.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
		n, err := d.Deliver(ctx, ev)
		cancel()
		if err != nil {
			d.log.Error().Err(err).Str("tenant_id", ev.TenantID).Str("category", ev.Category).
				Int("delivered", n).Msg("entrega de notificaciones incompleta")
			continue
		}
		d.log.Debug().Str("tenant_id", ev.TenantID).Int("delivered", n).Msg("notificaciones entregadas")
	}
}

// Deliver resuelve destinatarios y crea una notificación por cada uno en paralelo.
// Devuelve cuántas se crearon; los fallos individuales se combinan en el error.
func (d *Dispatcher) Deliver(ctx context.Context, ev Event) (int, error) {
	recipients := ev.Recipients
	if len(recipients) == 0 {
		admins, err := d.memberships.ListAdmins(ctx, ev.TenantID)
		if err != nil {
			return 0, fmt.Errorf("resolver administradores: %w", err)
		}
		for _, m := range admins {
			recipients = append(recipients, m.UserID)
		}
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	var (
		mu        sync.Mutex
		delivered int
	)
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(d.opts.Workers)
	now := time.Now().UTC()
	for _, userID := range dedupe(recipients) {
		recipient := userID
		p.Go(func(ctx context.Context) error {
			n := &entity.Notification{
				ID:          uuid.New().String(),
				TenantID:    ev.TenantID,
				RecipientID: recipient,
				Category:    ev.Category,
				Title:       ev.Title,
				Message:     ev.Message,
				Link:        ev.Link,
				CreatedBy:   ev.CreatedBy,
				CreatedAt:   now,
			}
			if err := d.notifications.Create(ctx, n); err != nil {
				return fmt.Errorf("destinatario %s: %w", recipient, err)
			}
			mu.Lock()
			delivered++
			mu.Unlock()
			return nil
		})
	}
	err := p.Wait()
	if err != nil && delivered > 0 {
		err = errors.Join(errPartialDelivery, err)
	}
	return delivered, err
}

var errPartialDelivery = errors.New("entrega parcial")

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
