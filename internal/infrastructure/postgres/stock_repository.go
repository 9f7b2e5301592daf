package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var (
	_ repository.StockRepository    = (*StockRepo)(nil)
	_ repository.MovementRepository = (*MovementRepo)(nil)
)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock actual de un producto en un área; nil si nunca tuvo existencias.
func (r *StockRepo) Get(ctx context.Context, productID, areaID string) (*entity.Stock, error) {
	query := `SELECT product_id, area_id, quantity, updated_at FROM stock WHERE product_id = $1 AND area_id = $2`
	return r.getOne(ctx, query, productID, areaID)
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, areaID string) (*entity.Stock, error) {
	query := `
		SELECT product_id, area_id, quantity, updated_at
		FROM stock WHERE product_id = $1 AND area_id = $2
		FOR UPDATE`
	return r.getOne(ctx, query, productID, areaID)
}

func (r *StockRepo) getOne(ctx context.Context, query, productID, areaID string) (*entity.Stock, error) {
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, productID, areaID).Scan(&s.ProductID, &s.AreaID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}

// Increment suma qty creando la fila si falta.
func (r *StockRepo) Increment(ctx context.Context, productID, areaID string, qty int64) (int64, error) {
	query := `
		INSERT INTO stock (product_id, area_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, area_id)
		DO UPDATE SET quantity = stock.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING quantity`
	var qtyAfter int64
	if err := r.q.QueryRow(ctx, query, productID, areaID, qty).Scan(&qtyAfter); err != nil {
		return 0, fmt.Errorf("increment stock: %w", err)
	}
	return qtyAfter, nil
}

// Decrement resta qty sólo si alcanza; la condición y la escritura son una sola sentencia.
func (r *StockRepo) Decrement(ctx context.Context, productID, areaID string, qty int64) (int64, bool, error) {
	query := `
		UPDATE stock SET quantity = quantity - $3, updated_at = now()
		WHERE product_id = $1 AND area_id = $2 AND quantity >= $3
		RETURNING quantity`
	var remaining int64
	err := r.q.QueryRow(ctx, query, productID, areaID, qty).Scan(&remaining)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("decrement stock: %w", err)
	}
	return remaining, true, nil
}

// ListBelowMinimum productos del tenant con existencias por debajo de su mínimo, opcionalmente en un área.
func (r *StockRepo) ListBelowMinimum(ctx context.Context, tenantID, areaID string) ([]*entity.LowStockItem, error) {
	query := `
		SELECT p.id, p.name, p.sku, s.area_id, s.quantity, p.min_stock
		FROM stock s
		JOIN products p ON p.id = s.product_id
		WHERE p.tenant_id = $1
		  AND ($2 = '' OR s.area_id::text = $2)
		  AND p.min_stock > 0
		  AND s.quantity < p.min_stock
		ORDER BY p.name`
	rows, err := r.q.Query(ctx, query, tenantID, areaID)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.LowStockItem
	for rows.Next() {
		var it entity.LowStockItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.SKU, &it.AreaID, &it.Quantity, &it.MinStock); err != nil {
			return nil, err
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// MovementRepo auditoría de movimientos de inventario.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, tenant_id, product_id, area_id, type, direction, quantity, counterpart_area_id,
	unit_cost, provider_id, sale_id, reference, created_by, created_at`

// Create registra un movimiento.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO inventory_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TenantID, m.ProductID, m.AreaID, m.Type, m.Direction, m.Quantity,
		nullIfEmpty(m.CounterpartAreaID), m.UnitCost, nullIfEmpty(m.ProviderID), nullIfEmpty(m.SaleID),
		nullIfEmpty(m.Reference), m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory movement: %w", err)
	}
	return nil
}

// ListByProduct últimos movimientos del producto.
func (r *MovementRepo) ListByProduct(ctx context.Context, productID string, limit int) ([]*entity.Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + movementColumns + ` FROM inventory_movements WHERE product_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		var (
			m                                      entity.Movement
			counterpart, provider, sale, reference *string
		)
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.ProductID, &m.AreaID, &m.Type, &m.Direction, &m.Quantity, &counterpart,
			&m.UnitCost, &provider, &sale, &reference, &m.CreatedBy, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.CounterpartAreaID, m.ProviderID = fromNull(counterpart), fromNull(provider)
		m.SaleID, m.Reference = fromNull(sale), fromNull(reference)
		list = append(list, &m)
	}
	return list, rows.Err()
}
