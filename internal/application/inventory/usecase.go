package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/notification"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/inventory"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

// RegisterMovementUseCase registra movimientos de inventario de forma transaccional
// (ENTRADA, SALIDA, TRANSFERENCIA). Cada cambio de stock deja su fila de movimiento
// en la misma transacción; las salidas usan un decremento condicional.
type RegisterMovementUseCase struct {
	txRunner repository.TxRunner
	products repository.ProductRepository
	stores   repository.StoreRepository
	notifier Notifier
	metrics  Metrics
	log      zerolog.Logger
	now      func() time.Time
}

// NewRegisterMovementUseCase construye el caso de uso. notifier y metrics pueden ser nil.
func NewRegisterMovementUseCase(
	txRunner repository.TxRunner,
	products repository.ProductRepository,
	stores repository.StoreRepository,
	notifier Notifier,
	metrics Metrics,
	log zerolog.Logger,
) *RegisterMovementUseCase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RegisterMovementUseCase{
		txRunner: txRunner,
		products: products,
		stores:   stores,
		notifier: notifier,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// movementInput entrada ya validada y con la cantidad en unidades enteras.
type movementInput struct {
	TenantID   string
	UserID     string
	ProductID  string
	AreaID     string
	FromAreaID string
	ToAreaID   string
	Type       string
	Quantity   int64
	UnitCost   *decimal.Decimal
	ProviderID string
	Reference  string
}

// level existencias resultantes en un área tras el movimiento.
type level struct {
	AreaID   string
	Quantity int64
	Outbound bool
}

// RegisterMovement valida la entrada, verifica que producto y áreas sean del tenant y
// aplica el movimiento dentro de una transacción (commit o rollback completo).
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, tenantID, userID string, in dto.RegisterMovementRequest) (*dto.RegisterMovementResponse, error) {
	if tenantID == "" || userID == "" {
		return nil, fmt.Errorf("%w: identidad requerida", domain.ErrUnauthorized)
	}
	input, err := validateMovement(in)
	if err != nil {
		return nil, err
	}
	input.TenantID = tenantID
	input.UserID = userID

	product, err := uc.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.TenantID != tenantID {
		return nil, fmt.Errorf("%w: producto inexistente", domain.ErrNotFound)
	}
	for _, areaID := range []string{input.AreaID, input.FromAreaID, input.ToAreaID} {
		if areaID == "" {
			continue
		}
		if err := uc.checkArea(ctx, tenantID, areaID); err != nil {
			return nil, err
		}
	}

	now := uc.now().UTC()
	var (
		movements []*entity.Movement
		levels    []level
	)
	err = uc.txRunner.Run(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		switch input.Type {
		case entity.MovementEntrada:
			movements, levels, err = uc.doEntrada(ctx, uow, product, input, now)
		case entity.MovementSalida:
			movements, levels, err = uc.doSalida(ctx, uow, product, input, now)
		case entity.MovementTransferencia:
			movements, levels, err = uc.doTransferencia(ctx, uow, product, input, now)
		default:
			err = domain.ErrInvalidInput
		}
		return err
	})
	if err != nil {
		if domain.IsDomainError(err) {
			if errors.Is(err, domain.ErrInsufficientStock) {
				uc.metrics.StockRejected(input.Type)
			}
			return nil, err
		}
		uc.log.Error().Err(err).Str("tenant_id", tenantID).Str("product_id", input.ProductID).Str("type", input.Type).Msg("movimiento revertido")
		return nil, fmt.Errorf("registrar movimiento: %w", err)
	}
	uc.metrics.MovementRecorded(input.Type)

	out := &dto.RegisterMovementResponse{
		Movements: make([]dto.MovementResponse, 0, len(movements)),
		Stock:     make([]dto.StockLevelResponse, 0, len(levels)),
	}
	for _, m := range movements {
		out.Movements = append(out.Movements, ToMovementResponse(m))
	}
	for _, l := range levels {
		low := isLow(product, l.Quantity)
		out.Stock = append(out.Stock, dto.StockLevelResponse{
			ProductID: product.ID,
			AreaID:    l.AreaID,
			Quantity:  l.Quantity,
			LowStock:  low,
		})
		if l.Outbound && low {
			uc.NotifyLowStock(ctx, product, l.AreaID, l.Quantity, userID)
		}
	}
	return out, nil
}

// ApplySaleOutInTx descuenta stock por una venta usando la transacción del llamador.
// Devuelve las existencias restantes o *domain.InsufficientStockError.
func (uc *RegisterMovementUseCase) ApplySaleOutInTx(
	ctx context.Context,
	uow repository.UnitOfWork,
	product *entity.Product,
	areaID, userID, saleID string,
	quantity int64,
	now time.Time,
) (int64, error) {
	remaining, err := decrement(ctx, uow, product, areaID, quantity)
	if err != nil {
		return 0, err
	}
	mov := &entity.Movement{
		ID:        uuid.New().String(),
		TenantID:  product.TenantID,
		ProductID: product.ID,
		AreaID:    areaID,
		Type:      entity.MovementSalida,
		Direction: entity.DirectionOut,
		Quantity:  quantity,
		UnitCost:  product.Cost,
		SaleID:    saleID,
		CreatedBy: userID,
		CreatedAt: now,
	}
	if err := uow.Movements.Create(ctx, mov); err != nil {
		return 0, err
	}
	return remaining, nil
}

// NotifyLowStock avisa a los administradores que un producto quedó bajo el mínimo.
func (uc *RegisterMovementUseCase) NotifyLowStock(ctx context.Context, product *entity.Product, areaID string, remaining int64, userID string) {
	uc.notifier.Publish(ctx, notification.Event{
		TenantID:  product.TenantID,
		Category:  entity.NotificationInventory,
		Title:     "Stock bajo",
		Message:   fmt.Sprintf("%s (%s) quedó con %d unidades; el mínimo es %d.", product.Name, product.SKU, remaining, product.MinStock),
		Link:      fmt.Sprintf("/inventory/low-stock?area_id=%s", areaID),
		CreatedBy: userID,
	})
}

// doEntrada: si trae costo unitario recalcula el costo promedio; suma stock y guarda movimiento.
func (uc *RegisterMovementUseCase) doEntrada(
	ctx context.Context,
	uow repository.UnitOfWork,
	product *entity.Product,
	input movementInput,
	now time.Time,
) ([]*entity.Movement, []level, error) {
	unitCost := product.Cost
	if input.UnitCost != nil {
		// bloquea la fila para que el promedio use las existencias reales
		current, err := uow.Stock.GetForUpdate(ctx, input.ProductID, input.AreaID)
		if err != nil {
			return nil, nil, err
		}
		var onHand int64
		if current != nil {
			onHand = current.Quantity
		}
		fresh, err := uow.Products.GetByID(ctx, product.ID)
		if err != nil {
			return nil, nil, err
		}
		if fresh == nil {
			return nil, nil, fmt.Errorf("%w: producto inexistente", domain.ErrNotFound)
		}
		newCost := inventory.WeightedAverageCost(onHand, fresh.Cost, input.Quantity, *input.UnitCost)
		if err := uow.Products.UpdateCost(ctx, product.ID, newCost); err != nil {
			return nil, nil, err
		}
		unitCost = *input.UnitCost
	}
	qty, err := uow.Stock.Increment(ctx, input.ProductID, input.AreaID, input.Quantity)
	if err != nil {
		return nil, nil, err
	}
	mov := newMovement(input, input.AreaID, entity.DirectionIn, "", unitCost, now)
	if err := uow.Movements.Create(ctx, mov); err != nil {
		return nil, nil, err
	}
	return []*entity.Movement{mov}, []level{{AreaID: input.AreaID, Quantity: qty}}, nil
}

// doSalida: resta sólo si hay existencias suficientes; nunca se intenta una escritura que deje negativo.
func (uc *RegisterMovementUseCase) doSalida(
	ctx context.Context,
	uow repository.UnitOfWork,
	product *entity.Product,
	input movementInput,
	now time.Time,
) ([]*entity.Movement, []level, error) {
	qty, err := decrement(ctx, uow, product, input.AreaID, input.Quantity)
	if err != nil {
		return nil, nil, err
	}
	mov := newMovement(input, input.AreaID, entity.DirectionOut, "", product.Cost, now)
	if err := uow.Movements.Create(ctx, mov); err != nil {
		return nil, nil, err
	}
	return []*entity.Movement{mov}, []level{{AreaID: input.AreaID, Quantity: qty, Outbound: true}}, nil
}

// doTransferencia: resta del área origen, suma en la destino y guarda dos movimientos.
func (uc *RegisterMovementUseCase) doTransferencia(
	ctx context.Context,
	uow repository.UnitOfWork,
	product *entity.Product,
	input movementInput,
	now time.Time,
) ([]*entity.Movement, []level, error) {
	originQty, err := decrement(ctx, uow, product, input.FromAreaID, input.Quantity)
	if err != nil {
		return nil, nil, err
	}
	destQty, err := uow.Stock.Increment(ctx, input.ProductID, input.ToAreaID, input.Quantity)
	if err != nil {
		return nil, nil, err
	}
	outMov := newMovement(input, input.FromAreaID, entity.DirectionOut, input.ToAreaID, product.Cost, now)
	if err := uow.Movements.Create(ctx, outMov); err != nil {
		return nil, nil, err
	}
	inMov := newMovement(input, input.ToAreaID, entity.DirectionIn, input.FromAreaID, product.Cost, now)
	if err := uow.Movements.Create(ctx, inMov); err != nil {
		return nil, nil, err
	}
	return []*entity.Movement{outMov, inMov}, []level{
		{AreaID: input.FromAreaID, Quantity: originQty, Outbound: true},
		{AreaID: input.ToAreaID, Quantity: destQty},
	}, nil
}

// decrement aplica el decremento condicional; si no alcanza informa lo disponible.
func decrement(ctx context.Context, uow repository.UnitOfWork, product *entity.Product, areaID string, qty int64) (int64, error) {
	remaining, ok, err := uow.Stock.Decrement(ctx, product.ID, areaID, qty)
	if err != nil {
		return 0, err
	}
	if ok {
		return remaining, nil
	}
	var available int64
	current, err := uow.Stock.Get(ctx, product.ID, areaID)
	if err != nil {
		return 0, err
	}
	if current != nil {
		available = current.Quantity
	}
	return 0, &domain.InsufficientStockError{Shortages: []domain.StockShortage{{
		ProductID:   product.ID,
		ProductName: product.Name,
		AreaID:      areaID,
		Requested:   qty,
		Available:   available,
	}}}
}

func newMovement(input movementInput, areaID, direction, counterpart string, unitCost decimal.Decimal, now time.Time) *entity.Movement {
	return &entity.Movement{
		ID:                uuid.New().String(),
		TenantID:          input.TenantID,
		ProductID:         input.ProductID,
		AreaID:            areaID,
		Type:              input.Type,
		Direction:         direction,
		Quantity:          input.Quantity,
		UnitCost:          unitCost,
		CounterpartAreaID: counterpart,
		ProviderID:        input.ProviderID,
		Reference:         input.Reference,
		CreatedBy:         input.UserID,
		CreatedAt:         now,
	}
}

func (uc *RegisterMovementUseCase) checkArea(ctx context.Context, tenantID, areaID string) error {
	store, err := uc.stores.GetByID(ctx, areaID)
	if err != nil {
		return err
	}
	if store == nil || store.TenantID != tenantID {
		return fmt.Errorf("%w: área %s inexistente", domain.ErrNotFound, areaID)
	}
	return nil
}

// validateMovement reúne todos los errores de campo antes de tocar el almacén.
func validateMovement(in dto.RegisterMovementRequest) (movementInput, error) {
	fe := domain.NewValidationError()
	if err := dto.Validate(in); err != nil {
		if !errors.As(err, &fe) {
			return movementInput{}, err
		}
	}
	qty, ok := inventory.ParseQuantity(in.Quantity)
	if !ok {
		fe.Add("quantity", "debe ser un entero positivo")
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		fe.Add("unit_cost", "no puede ser negativo")
	}
	switch in.Type {
	case entity.MovementEntrada, entity.MovementSalida:
		if in.AreaID == "" {
			fe.Add("area_id", "es obligatorio")
		}
	case entity.MovementTransferencia:
		if in.FromAreaID == "" {
			fe.Add("from_area_id", "es obligatorio")
		}
		if in.ToAreaID == "" {
			fe.Add("to_area_id", "es obligatorio")
		}
		if in.FromAreaID != "" && in.FromAreaID == in.ToAreaID {
			fe.Add("to_area_id", "debe ser distinta del área de origen")
		}
	}
	if err := fe.OrNil(); err != nil {
		return movementInput{}, err
	}
	input := movementInput{
		ProductID:  in.ProductID,
		Type:       in.Type,
		Quantity:   qty,
		UnitCost:   in.UnitCost,
		ProviderID: in.ProviderID,
		Reference:  in.Reference,
	}
	if in.Type == entity.MovementTransferencia {
		input.FromAreaID, input.ToAreaID = in.FromAreaID, in.ToAreaID
	} else {
		input.AreaID = in.AreaID
	}
	return input, nil
}

func isLow(p *entity.Product, qty int64) bool {
	return p.MinStock > 0 && qty < p.MinStock
}

// ToMovementResponse convierte un movimiento a su DTO.
func ToMovementResponse(m *entity.Movement) dto.MovementResponse {
	out := dto.MovementResponse{
		ID:                m.ID,
		ProductID:         m.ProductID,
		AreaID:            m.AreaID,
		Type:              m.Type,
		Direction:         m.Direction,
		Quantity:          m.Quantity,
		CounterpartAreaID: m.CounterpartAreaID,
		SaleID:            m.SaleID,
		CreatedAt:         m.CreatedAt,
	}
	if !m.UnitCost.IsZero() {
		c := m.UnitCost
		out.UnitCost = &c
	}
	return out
}
