package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/comercio-api/internal/domain"
)

func TestLocker_ExclusionYVencimiento(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewLocker()
	l.now = func() time.Time { return now }

	first, err := l.Obtain(ctx, "tenant:900", time.Minute)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "tenant:900", time.Minute)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = l.Obtain(ctx, "tenant:901", time.Minute)
	assert.NoError(t, err, "otra clave es independiente")

	// vencido, otro lo toma; liberar el viejo no suelta el nuevo
	now = now.Add(2 * time.Minute)
	second, err := l.Obtain(ctx, "tenant:900", time.Minute)
	require.NoError(t, err)
	require.NoError(t, first.Release(ctx))
	_, err = l.Obtain(ctx, "tenant:900", time.Minute)
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, second.Release(ctx))
	_, err = l.Obtain(ctx, "tenant:900", time.Minute)
	assert.NoError(t, err)
}

func TestLimiter_VentanaFija(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Hour)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, _ := l.Allow(ctx, "join:u1")
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "join:u1")
	assert.False(t, ok)

	now = now.Add(time.Hour)
	ok, _ = l.Allow(ctx, "join:u1")
	assert.True(t, ok, "la ventana se reinicia")
}
