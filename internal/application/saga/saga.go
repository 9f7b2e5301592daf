// Package saga implementa la pila de compensaciones usada por los flujos que
// escriben en más de un almacén sin transacción distribuida.
package saga

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Observer recibe el resultado de cada compensación. Puede ser nil.
type Observer interface {
	Compensation(flow, step string, ok bool)
}

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// UndoStack registra compensaciones tras cada paso exitoso y las ejecuta en orden
// inverso (LIFO) si un paso posterior falla. Es seguro para uso concurrente.
type UndoStack struct {
	flow     string
	log      zerolog.Logger
	observer Observer
	timeout  time.Duration

	mu    sync.Mutex
	steps []compensation
}

// New crea una pila vacía. timeout acota cada compensación individual.
func New(flow string, log zerolog.Logger, observer Observer, timeout time.Duration) *UndoStack {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UndoStack{
		flow:     flow,
		log:      log.With().Str("saga", flow).Logger(),
		observer: observer,
		timeout:  timeout,
	}
}

// Push registra la compensación del paso que acaba de completarse.
func (u *UndoStack) Push(step string, undo func(ctx context.Context) error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.steps = append(u.steps, compensation{step: step, undo: undo})
}

// Steps nombres de los pasos registrados, en orden de registro.
func (u *UndoStack) Steps() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.steps))
	for _, c := range u.steps {
		out = append(out, c.step)
	}
	return out
}

// Unwind ejecuta todas las compensaciones en orden inverso y vacía la pila.
// Un fallo se registra y no detiene las siguientes. Devuelve los fallos ocurridos.
// Se ejecuta aunque ctx ya esté cancelado; una segunda llamada no hace nada.
func (u *UndoStack) Unwind(ctx context.Context) []error {
	u.mu.Lock()
	steps := u.steps
	u.steps = nil
	u.mu.Unlock()

	base := context.WithoutCancel(ctx)
	var failures []error
	for i := len(steps) - 1; i >= 0; i-- {
		c := steps[i]
		err := Run(base, u.timeout, c.undo)
		if u.observer != nil {
			u.observer.Compensation(u.flow, c.step, err == nil)
		}
		if err != nil {
			u.log.Error().Err(err).Str("step", c.step).Msg("compensación fallida, requiere revisión manual")
			failures = append(failures, fmt.Errorf("%s: %w", c.step, err))
			continue
		}
		u.log.Warn().Str("step", c.step).Msg("paso compensado")
	}
	return failures
}

// Run ejecuta fn con un contexto acotado por timeout.
func Run(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(tctx)
}
