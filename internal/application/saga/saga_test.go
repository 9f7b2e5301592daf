package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu      sync.Mutex
	results map[string]bool
}

func (o *recordingObserver) Compensation(_, step string, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = map[string]bool{}
	}
	o.results[step] = ok
}

func TestUnwind_OrdenInverso(t *testing.T) {
	u := New("test", zerolog.Nop(), nil, time.Second)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		n := name
		u.Push(n, func(context.Context) error {
			order = append(order, n)
			return nil
		})
	}

	failures := u.Unwind(context.Background())
	assert.Empty(t, failures)
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestUnwind_ContinuaTrasFallo(t *testing.T) {
	obs := &recordingObserver{}
	u := New("test", zerolog.Nop(), obs, time.Second)
	var ran []string
	u.Push("primero", func(context.Context) error { ran = append(ran, "primero"); return nil })
	u.Push("roto", func(context.Context) error { return errors.New("boom") })
	u.Push("ultimo", func(context.Context) error { ran = append(ran, "ultimo"); return nil })

	failures := u.Unwind(context.Background())
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "roto")
	assert.Equal(t, []string{"ultimo", "primero"}, ran)
	assert.False(t, obs.results["roto"])
	assert.True(t, obs.results["primero"])
}

func TestUnwind_Idempotente(t *testing.T) {
	u := New("test", zerolog.Nop(), nil, time.Second)
	calls := 0
	u.Push("x", func(context.Context) error { calls++; return nil })

	u.Unwind(context.Background())
	u.Unwind(context.Background())
	assert.Equal(t, 1, calls)
	assert.Empty(t, u.Steps())
}

func TestUnwind_ContextoCancelado(t *testing.T) {
	u := New("test", zerolog.Nop(), nil, time.Second)
	var gotErr error
	u.Push("x", func(ctx context.Context) error {
		gotErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	u.Unwind(ctx)
	assert.NoError(t, gotErr, "la compensación no debe heredar la cancelación")
}

func TestRun_Timeout(t *testing.T) {
	err := Run(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
