package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var (
	_ repository.SaleRepository     = (*SaleRepo)(nil)
	_ repository.InvoiceRepository  = (*InvoiceRepo)(nil)
	_ repository.SequenceRepository = (*SequenceRepo)(nil)
)

// SaleRepo ventas de caja (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, tenant_id, area_id, sale_number, customer_id, invoice_id, subtotal, tax, total, tax_rate,
	payment_method, status, created_by, created_at`

// Create persiste la cabecera. Un número repetido devuelve domain.ErrConflict para que el caller reintente.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.TenantID, s.AreaID, s.SaleNumber, nullIfEmpty(s.CustomerID), nullIfEmpty(s.InvoiceID),
		s.Subtotal, s.Tax, s.Total, s.TaxRate, s.PaymentMethod, s.Status, s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("número de venta %s: %w", s.SaleNumber, domain.ErrConflict)
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// CreateItem persiste una línea de la venta.
func (r *SaleRepo) CreateItem(ctx context.Context, item *entity.SaleItem) error {
	query := `
		INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal)
	if err != nil {
		return fmt.Errorf("insert sale item: %w", err)
	}
	return nil
}

// AttachInvoice enlaza la factura emitida con la venta.
func (r *SaleRepo) AttachInvoice(ctx context.Context, saleID, invoiceID string) error {
	tag, err := r.q.Exec(ctx, `UPDATE sales SET invoice_id = $2 WHERE id = $1`, saleID, invoiceID)
	if err != nil {
		return fmt.Errorf("attach invoice: %w", err)
	}
	return requireOne(tag)
}

// GetByID obtiene una venta por ID.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	var (
		s                     entity.Sale
		customerID, invoiceID *string
	)
	err := r.q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id).Scan(
		&s.ID, &s.TenantID, &s.AreaID, &s.SaleNumber, &customerID, &invoiceID, &s.Subtotal, &s.Tax, &s.Total,
		&s.TaxRate, &s.PaymentMethod, &s.Status, &s.CreatedBy, &s.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s.CustomerID, s.InvoiceID = fromNull(customerID), fromNull(invoiceID)
	return &s, nil
}

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (id, tenant_id, customer_id, sale_id, number, subtotal, tax, total, status, issued_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.TenantID, inv.CustomerID, nullIfEmpty(inv.SaleID), inv.Number,
		inv.Subtotal, inv.Tax, inv.Total, inv.Status, inv.IssuedAt, inv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("número de factura %s: %w", inv.Number, domain.ErrConflict)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateItem persiste una línea de detalle.
func (r *InvoiceRepo) CreateItem(ctx context.Context, item *entity.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (id, invoice_id, product_id, quantity, unit_price, tax_rate, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.InvoiceID, item.ProductID, item.Quantity, item.UnitPrice, item.TaxRate, item.Subtotal,
	)
	if err != nil {
		return fmt.Errorf("insert invoice item: %w", err)
	}
	return nil
}

// CreatePayment registra el pago de la factura.
func (r *InvoiceRepo) CreatePayment(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (id, tenant_id, invoice_id, amount, method, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, p.ID, p.TenantID, p.InvoiceID, p.Amount, p.Method, p.Status, p.PaidAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera de una factura.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `
		SELECT id, tenant_id, customer_id, sale_id, number, subtotal, tax, total, status, issued_at, created_at
		FROM invoices WHERE id = $1`
	var (
		inv    entity.Invoice
		saleID *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.TenantID, &inv.CustomerID, &saleID, &inv.Number,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.Status, &inv.IssuedAt, &inv.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.SaleID = fromNull(saleID)
	return &inv, nil
}

// SequenceRepo contador diario atómico. La fila (namespace, day) queda bloqueada
// hasta el fin de la transacción, así que dos ventas del mismo día se serializan en ella.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Debe usarse dentro de la tx de la venta.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// tabla y columna donde viven los números de cada espacio de nombres.
var sequenceTargets = map[string]struct{ table, column string }{
	"sale":    {"sales", "sale_number"},
	"invoice": {"invoices", "number"},
}

// Next devuelve el siguiente valor del día, nunca por debajo del mayor sufijo ya usado con stem.
func (r *SequenceRepo) Next(ctx context.Context, namespace string, day time.Time, stem string) (int64, error) {
	target, ok := sequenceTargets[namespace]
	if !ok {
		return 0, fmt.Errorf("secuencia desconocida %q", namespace)
	}
	query := fmt.Sprintf(`
		WITH used AS (
			SELECT COALESCE(MAX(substring(%[2]s FROM char_length($3::text) + 1)::bigint), 0) AS v
			FROM %[1]s
			WHERE left(%[2]s, char_length($3::text)) = $3::text
			  AND substring(%[2]s FROM char_length($3::text) + 1) ~ '^[0-9]{1,18}$'
		)
		INSERT INTO sequences (namespace, day, last_value)
		SELECT $1, $2::date, used.v + 1 FROM used
		ON CONFLICT (namespace, day) DO UPDATE
		SET last_value = GREATEST(sequences.last_value + 1, EXCLUDED.last_value)
		RETURNING last_value`, target.table, target.column)

	var next int64
	if err := r.q.QueryRow(ctx, query, namespace, day.Format("2006-01-02"), stem).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", namespace, err)
	}
	return next, nil
}
