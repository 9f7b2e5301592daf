package repository

import (
	"context"
	"time"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

// SaleRepository puerto de ventas.
type SaleRepository interface {
	// Create devuelve domain.ErrConflict si el número de venta ya existe.
	Create(ctx context.Context, s *entity.Sale) error
	CreateItem(ctx context.Context, item *entity.SaleItem) error
	AttachInvoice(ctx context.Context, saleID, invoiceID string) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
}

// InvoiceRepository puerto de facturas y pagos.
type InvoiceRepository interface {
	// Create devuelve domain.ErrConflict si el número de factura ya existe.
	Create(ctx context.Context, inv *entity.Invoice) error
	CreateItem(ctx context.Context, item *entity.InvoiceItem) error
	CreatePayment(ctx context.Context, p *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
}

// SequenceRepository contador diario atómico por espacio de nombres ("sale", "invoice").
// Next nunca devuelve un valor menor o igual al mayor sufijo ya usado con stem
// (p. ej. "V-20260301-"), aunque esos números se hayan escrito sin pasar por el contador.
type SequenceRepository interface {
	Next(ctx context.Context, namespace string, day time.Time, stem string) (int64, error)
}
