package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/inventory"
	"github.com/jhoicas/comercio-api/internal/application/notification"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
	"github.com/jhoicas/comercio-api/internal/infrastructure/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Publish(_ context.Context, ev notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

type countingMetrics struct {
	mu       sync.Mutex
	recorded map[string]int
	rejected map[string]int
}

func (m *countingMetrics) MovementRecorded(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recorded == nil {
		m.recorded = map[string]int{}
	}
	m.recorded[t]++
}

func (m *countingMetrics) StockRejected(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejected == nil {
		m.rejected = map[string]int{}
	}
	m.rejected[t]++
}

const (
	tenantA = "tenant-a"
	tenantB = "tenant-b"
	areaA1  = "area-a1"
	areaA2  = "area-a2"
	areaB1  = "area-b1"
	prodA   = "prod-a"
	prodB   = "prod-b"
	userID  = "user-1"
)

type fixture struct {
	db       *memory.DB
	notifier *recordingNotifier
	metrics  *countingMetrics
	uc       *inventory.RegisterMovementUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := memory.New()
	now := time.Now()
	for _, s := range []*entity.Store{
		{ID: areaA1, TenantID: tenantA, Name: "Principal", IsDefault: true, CreatedAt: now},
		{ID: areaA2, TenantID: tenantA, Name: "Bodega", CreatedAt: now},
		{ID: areaB1, TenantID: tenantB, Name: "Otra", IsDefault: true, CreatedAt: now},
	} {
		require.NoError(t, db.Stores().Create(ctx, s))
	}
	require.NoError(t, db.Products().Create(ctx, &entity.Product{
		ID: prodA, TenantID: tenantA, SKU: "CAF-500", Name: "Café 500g",
		Price: decimal.NewFromInt(1000), Cost: decimal.NewFromInt(600), MinStock: 3,
	}))
	require.NoError(t, db.Products().Create(ctx, &entity.Product{
		ID: prodB, TenantID: tenantB, SKU: "AZU-1", Name: "Azúcar", Price: decimal.NewFromInt(500),
	}))

	f := &fixture{db: db, notifier: &recordingNotifier{}, metrics: &countingMetrics{}}
	f.uc = inventory.NewRegisterMovementUseCase(db.TxRunner(), db.Products(), db.Stores(), f.notifier, f.metrics, zerolog.Nop())
	return f
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestEntrada_CreaStockYMovimiento(t *testing.T) {
	f := newFixture(t)

	out, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementEntrada, Quantity: qty(5), AreaID: areaA1, Reference: "OC-12",
	})
	require.NoError(t, err)
	require.Len(t, out.Movements, 1)
	assert.Equal(t, entity.DirectionIn, out.Movements[0].Direction)
	assert.Equal(t, int64(5), out.Stock[0].Quantity)
	assert.False(t, out.Stock[0].LowStock)
	assert.Equal(t, int64(5), f.db.StockOf(prodA, areaA1))

	movs := f.db.Movements()
	require.Len(t, movs, 1)
	assert.Equal(t, "OC-12", movs[0].Reference)
	assert.Equal(t, userID, movs[0].CreatedBy)
	assert.Equal(t, 1, f.metrics.recorded[entity.MovementEntrada])
}

func TestEntrada_RecalculaCostoPromedio(t *testing.T) {
	f := newFixture(t)
	f.db.SetStock(prodA, areaA1, 10)
	cost := decimal.NewFromInt(900)

	_, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementEntrada, Quantity: qty(10), AreaID: areaA1, UnitCost: &cost,
	})
	require.NoError(t, err)

	p, err := f.db.Products().GetByID(context.Background(), prodA)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(750).Equal(p.Cost), "(10*600 + 10*900) / 20, obtenido %s", p.Cost)
}

func TestEntrada_FalloRevierteCosto(t *testing.T) {
	f := newFixture(t)
	f.db.FailOn("movements.Create", errors.New("disco lleno"))
	cost := decimal.NewFromInt(900)

	_, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementEntrada, Quantity: qty(10), AreaID: areaA1, UnitCost: &cost,
	})
	require.Error(t, err)
	assert.False(t, domain.IsDomainError(err))

	p, _ := f.db.Products().GetByID(context.Background(), prodA)
	assert.True(t, decimal.NewFromInt(600).Equal(p.Cost))
	assert.Zero(t, f.db.StockOf(prodA, areaA1))
	assert.Empty(t, f.db.Movements())
}

func TestSalida_StockInsuficienteNoEscribe(t *testing.T) {
	f := newFixture(t)
	f.db.SetStock(prodA, areaA1, 2)

	_, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementSalida, Quantity: qty(3), AreaID: areaA1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var se *domain.InsufficientStockError
	require.True(t, errors.As(err, &se))
	require.Len(t, se.Shortages, 1)
	assert.Equal(t, "Café 500g", se.Shortages[0].ProductName)
	assert.Equal(t, int64(2), se.Shortages[0].Available)
	assert.Equal(t, int64(1), se.Shortages[0].Shortfall())

	assert.Equal(t, int64(2), f.db.StockOf(prodA, areaA1))
	assert.Empty(t, f.db.Movements())
	assert.Equal(t, 1, f.metrics.rejected[entity.MovementSalida])
}

func TestSalida_SinFilaDeStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementSalida, Quantity: qty(1), AreaID: areaA1,
	})
	var se *domain.InsufficientStockError
	require.True(t, errors.As(err, &se))
	assert.Zero(t, se.Shortages[0].Available)
}

func TestSalida_BajoMinimoNotifica(t *testing.T) {
	f := newFixture(t)
	f.db.SetStock(prodA, areaA1, 5)

	out, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementSalida, Quantity: qty(3), AreaID: areaA1,
	})
	require.NoError(t, err)
	assert.True(t, out.Stock[0].LowStock)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, entity.NotificationInventory, events[0].Category)
	assert.Equal(t, tenantA, events[0].TenantID)
	assert.Empty(t, events[0].Recipients)
}

func TestTransferencia_DosFilasYStock(t *testing.T) {
	f := newFixture(t)
	f.db.SetStock(prodA, areaA1, 10)

	out, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementTransferencia, Quantity: qty(4), FromAreaID: areaA1, ToAreaID: areaA2,
	})
	require.NoError(t, err)
	require.Len(t, out.Movements, 2)
	assert.Equal(t, int64(6), f.db.StockOf(prodA, areaA1))
	assert.Equal(t, int64(4), f.db.StockOf(prodA, areaA2))

	movs := f.db.Movements()
	require.Len(t, movs, 2)
	assert.Equal(t, areaA1, movs[0].AreaID)
	assert.Equal(t, entity.DirectionOut, movs[0].Direction)
	assert.Equal(t, areaA2, movs[0].CounterpartAreaID)
	assert.Equal(t, areaA2, movs[1].AreaID)
	assert.Equal(t, entity.DirectionIn, movs[1].Direction)
	for _, m := range movs {
		assert.Equal(t, entity.MovementTransferencia, m.Type)
		assert.Equal(t, int64(4), m.Quantity)
	}
}

func TestTransferencia_OrigenInsuficienteNoMueveNada(t *testing.T) {
	f := newFixture(t)
	f.db.SetStock(prodA, areaA1, 1)

	_, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementTransferencia, Quantity: qty(2), FromAreaID: areaA1, ToAreaID: areaA2,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(1), f.db.StockOf(prodA, areaA1))
	assert.Zero(t, f.db.StockOf(prodA, areaA2))
}

func TestTransferencia_FalloEnDestinoRevierteOrigen(t *testing.T) {
	f := newFixture(t)
	f.db.SetStock(prodA, areaA1, 10)
	f.db.FailOn("stock.Increment", errors.New("timeout"))

	_, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementTransferencia, Quantity: qty(4), FromAreaID: areaA1, ToAreaID: areaA2,
	})
	require.Error(t, err)
	assert.Equal(t, int64(10), f.db.StockOf(prodA, areaA1))
	assert.Empty(t, f.db.Movements())
}

func TestRegisterMovement_Validacion(t *testing.T) {
	f := newFixture(t)
	before := f.db.Writes()
	tests := []struct {
		name   string
		in     dto.RegisterMovementRequest
		fields []string
	}{
		{
			name:   "cantidad fraccionaria",
			in:     dto.RegisterMovementRequest{ProductID: prodA, Type: entity.MovementEntrada, Quantity: decimal.RequireFromString("1.5"), AreaID: areaA1},
			fields: []string{"quantity"},
		},
		{
			name:   "cantidad cero y sin área",
			in:     dto.RegisterMovementRequest{ProductID: prodA, Type: entity.MovementSalida},
			fields: []string{"quantity", "area_id"},
		},
		{
			name:   "sin producto y cantidad cero",
			in:     dto.RegisterMovementRequest{Type: entity.MovementEntrada, AreaID: areaA1},
			fields: []string{"product_id", "quantity"},
		},
		{
			name:   "tipo desconocido",
			in:     dto.RegisterMovementRequest{ProductID: prodA, Type: "AJUSTE", Quantity: qty(1), AreaID: areaA1},
			fields: []string{"type"},
		},
		{
			name:   "transferencia a la misma área",
			in:     dto.RegisterMovementRequest{ProductID: prodA, Type: entity.MovementTransferencia, Quantity: qty(1), FromAreaID: areaA1, ToAreaID: areaA1},
			fields: []string{"to_area_id"},
		},
		{
			name:   "costo negativo",
			in:     dto.RegisterMovementRequest{ProductID: prodA, Type: entity.MovementEntrada, Quantity: qty(1), AreaID: areaA1, UnitCost: func() *decimal.Decimal { d := decimal.NewFromInt(-1); return &d }()},
			fields: []string{"unit_cost"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			var fe *domain.FieldErrors
			require.True(t, errors.As(err, &fe))
			got := make([]string, 0, len(fe.Fields))
			for _, x := range fe.Fields {
				got = append(got, x.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
	assert.Equal(t, before, f.db.Writes())
}

func TestRegisterMovement_AislamientoEntreTenants(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodB, Type: entity.MovementEntrada, Quantity: qty(1), AreaID: areaA1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "producto de otro tenant")

	_, err = f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
		ProductID: prodA, Type: entity.MovementEntrada, Quantity: qty(1), AreaID: areaB1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "área de otro tenant")

	_, err = f.uc.RegisterMovement(context.Background(), "", userID, dto.RegisterMovementRequest{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSalida_ConcurrenteNuncaNegativo(t *testing.T) {
	f := newFixture(t)
	f.db.SetStock(prodA, areaA1, 10)

	const workers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, short int
		other     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
				ProductID: prodA, Type: entity.MovementSalida, Quantity: qty(1), AreaID: areaA1,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				short++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 10, ok)
	assert.Equal(t, workers-10, short)
	assert.Zero(t, f.db.StockOf(prodA, areaA1))
	assert.Len(t, f.db.Movements(), 10, "un movimiento por cada salida aplicada")
}

// staleStock simula una lectura vieja: las consultas ven más existencias de las reales.
type staleStock struct {
	repository.StockRepository
	extra int64
}

func (s staleStock) Get(ctx context.Context, productID, areaID string) (*entity.Stock, error) {
	st, err := s.StockRepository.Get(ctx, productID, areaID)
	if st != nil {
		st.Quantity += s.extra
	}
	return st, err
}

func (s staleStock) GetForUpdate(ctx context.Context, productID, areaID string) (*entity.Stock, error) {
	return s.Get(ctx, productID, areaID)
}

type staleRunner struct {
	inner repository.TxRunner
	extra int64
}

func (r staleRunner) Run(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		uow.Stock = staleStock{StockRepository: uow.Stock, extra: r.extra}
		return fn(ctx, uow)
	})
}

func TestSalida_DecideElDecrementoCondicionalNoLaLectura(t *testing.T) {
	f := newFixture(t)
	f.db.SetStock(prodA, areaA1, 2)
	uc := inventory.NewRegisterMovementUseCase(staleRunner{inner: f.db.TxRunner(), extra: 10}, f.db.Products(), f.db.Stores(), f.notifier, f.metrics, zerolog.Nop())

	for _, typ := range []string{entity.MovementSalida, entity.MovementTransferencia} {
		_, err := uc.RegisterMovement(context.Background(), tenantA, userID, dto.RegisterMovementRequest{
			ProductID: prodA, Type: typ, Quantity: qty(5), AreaID: areaA1, FromAreaID: areaA1, ToAreaID: areaA2,
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientStock, typ)
	}
	assert.Equal(t, int64(2), f.db.StockOf(prodA, areaA1))
	assert.Zero(t, f.db.StockOf(prodA, areaA2))
	assert.Empty(t, f.db.Movements())
}

func TestLowStock_OrdenaPorDeficit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Products().Create(ctx, &entity.Product{
		ID: "prod-c", TenantID: tenantA, SKU: "LEC-1", Name: "Leche", MinStock: 10,
	}))
	f.db.SetStock(prodA, areaA1, 2)    // 1/3 bajo el mínimo
	f.db.SetStock("prod-c", areaA1, 1) // 9/10 bajo el mínimo
	f.db.SetStock(prodA, areaA2, 8)    // sobre el mínimo

	list, err := inventory.NewLowStockUseCase(f.db.StockRepo()).List(ctx, tenantA, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "prod-c", list[0].ProductID)
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, int64(14), list[0].SuggestedOrderQty, "ideal 15 menos 1")
	assert.Equal(t, prodA, list[1].ProductID)
	assert.Equal(t, int64(3), list[1].SuggestedOrderQty, "ideal 5 menos 2")

	onlyA2, err := inventory.NewLowStockUseCase(f.db.StockRepo()).List(ctx, tenantA, areaA2)
	require.NoError(t, err)
	assert.Empty(t, onlyA2)
}
