package repository

import "context"

// UnitOfWork repositorios atados a una misma transacción del almacén relacional.
type UnitOfWork struct {
	Products  ProductRepository
	Stock     StockRepository
	Movements MovementRepository
	Sales     SaleRepository
	Invoices  InvoiceRepository
	Sequences SequenceRepository
}

// TxRunner ejecuta fn dentro de una transacción: commit si retorna nil, rollback en otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
