package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var (
	_ repository.StockRepository    = (*Stock)(nil)
	_ repository.MovementRepository = (*Movements)(nil)
	_ repository.SaleRepository     = (*Sales)(nil)
	_ repository.InvoiceRepository  = (*Invoices)(nil)
	_ repository.SequenceRepository = (*Sequences)(nil)
	_ repository.TxRunner           = (*TxRunner)(nil)
)

// TxRunner serializa las transacciones y restaura las tablas transaccionales si fn falla.
type TxRunner struct{ db *DB }

// TxRunner devuelve el ejecutor de transacciones.
func (db *DB) TxRunner() *TxRunner { return &TxRunner{db: db} }

func (t *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	db := t.db
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snapshot := db.tx.clone()
	costs := make(map[string]decimal.Decimal, len(db.products))
	for id, p := range db.products {
		costs[id] = p.Cost
	}
	writes := db.writes
	db.mu.Unlock()

	uow := repository.UnitOfWork{
		Products:  &Products{db: db},
		Stock:     &Stock{db: db},
		Movements: &Movements{db: db},
		Sales:     &Sales{db: db},
		Invoices:  &Invoices{db: db},
		Sequences: &Sequences{db: db},
	}
	err := fn(ctx, uow)
	if err == nil {
		db.mu.Lock()
		err = db.fail("tx.Commit")
		db.mu.Unlock()
	}
	if err != nil {
		db.mu.Lock()
		db.tx = snapshot
		for id, cost := range costs {
			if p, ok := db.products[id]; ok {
				p.Cost = cost
			}
		}
		db.writes = writes
		db.mu.Unlock()
		return err
	}
	return nil
}

// Stock existencias en memoria.
type Stock struct{ db *DB }

// StockRepo repositorio de stock fuera de transacción (lecturas y reportes).
func (db *DB) StockRepo() *Stock { return &Stock{db: db} }

func (r *Stock) Get(_ context.Context, productID, areaID string) (*entity.Stock, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.tx.stock[stockKey{productID, areaID}]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *Stock) GetForUpdate(ctx context.Context, productID, areaID string) (*entity.Stock, error) {
	return r.Get(ctx, productID, areaID)
}

func (r *Stock) Increment(_ context.Context, productID, areaID string, qty int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("stock.Increment"); err != nil {
		return 0, err
	}
	k := stockKey{productID, areaID}
	s, ok := r.db.tx.stock[k]
	if !ok {
		s = &entity.Stock{ProductID: productID, AreaID: areaID}
		r.db.tx.stock[k] = s
	}
	s.Quantity += qty
	s.UpdatedAt = r.db.now()
	r.db.writes++
	return s.Quantity, nil
}

func (r *Stock) Decrement(_ context.Context, productID, areaID string, qty int64) (int64, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("stock.Decrement"); err != nil {
		return 0, false, err
	}
	s, ok := r.db.tx.stock[stockKey{productID, areaID}]
	if !ok || s.Quantity < qty {
		return 0, false, nil
	}
	s.Quantity -= qty
	s.UpdatedAt = r.db.now()
	r.db.writes++
	return s.Quantity, true, nil
}

func (r *Stock) ListBelowMinimum(_ context.Context, tenantID, areaID string) ([]*entity.LowStockItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.LowStockItem
	for k, s := range r.db.tx.stock {
		if areaID != "" && k.area != areaID {
			continue
		}
		p, ok := r.db.products[k.product]
		if !ok || p.TenantID != tenantID || p.MinStock <= 0 || s.Quantity >= p.MinStock {
			continue
		}
		out = append(out, &entity.LowStockItem{
			ProductID: p.ID, ProductName: p.Name, SKU: p.SKU,
			AreaID: k.area, Quantity: s.Quantity, MinStock: p.MinStock,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	return out, nil
}

// Movements movimientos en memoria.
type Movements struct{ db *DB }

func (r *Movements) Create(_ context.Context, m *entity.Movement) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("movements.Create"); err != nil {
		return err
	}
	c := *m
	r.db.tx.movements = append(r.db.tx.movements, &c)
	r.db.writes++
	return nil
}

func (r *Movements) ListByProduct(_ context.Context, productID string, limit int) ([]*entity.Movement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Movement
	for i := len(r.db.tx.movements) - 1; i >= 0; i-- {
		m := r.db.tx.movements[i]
		if m.ProductID == productID {
			c := *m
			out = append(out, &c)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Sales ventas en memoria.
type Sales struct{ db *DB }

func (r *Sales) Create(_ context.Context, s *entity.Sale) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("sales.Create"); err != nil {
		return err
	}
	for _, o := range r.db.tx.sales {
		if o.SaleNumber == s.SaleNumber {
			return fmt.Errorf("número de venta %s: %w", s.SaleNumber, domain.ErrConflict)
		}
	}
	c := *s
	r.db.tx.sales[s.ID] = &c
	r.db.writes++
	return nil
}

func (r *Sales) CreateItem(_ context.Context, item *entity.SaleItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *item
	r.db.tx.saleItems = append(r.db.tx.saleItems, &c)
	r.db.writes++
	return nil
}

func (r *Sales) AttachInvoice(_ context.Context, saleID, invoiceID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.tx.sales[saleID]
	if !ok {
		return domain.ErrNotFound
	}
	s.InvoiceID = invoiceID
	return nil
}

func (r *Sales) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.tx.sales[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

// Invoices facturas en memoria.
type Invoices struct{ db *DB }

func (r *Invoices) Create(_ context.Context, inv *entity.Invoice) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("invoices.Create"); err != nil {
		return err
	}
	for _, o := range r.db.tx.invoices {
		if o.Number == inv.Number {
			return fmt.Errorf("número de factura %s: %w", inv.Number, domain.ErrConflict)
		}
	}
	c := *inv
	r.db.tx.invoices[inv.ID] = &c
	r.db.writes++
	return nil
}

func (r *Invoices) CreateItem(_ context.Context, item *entity.InvoiceItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *item
	r.db.tx.invoiceItems = append(r.db.tx.invoiceItems, &c)
	return nil
}

func (r *Invoices) CreatePayment(_ context.Context, p *entity.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("payments.Create"); err != nil {
		return err
	}
	c := *p
	r.db.tx.payments = append(r.db.tx.payments, &c)
	r.db.writes++
	return nil
}

func (r *Invoices) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if inv, ok := r.db.tx.invoices[id]; ok {
		c := *inv
		return &c, nil
	}
	return nil, nil
}

// Sequences contadores diarios en memoria.
type Sequences struct{ db *DB }

func (r *Sequences) Next(_ context.Context, namespace string, day time.Time, stem string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("sequences.Next"); err != nil {
		return 0, err
	}
	k := namespace + ":" + day.Format("20060102")
	next := r.db.tx.sequences[k]
	if used := r.db.maxSuffix(namespace, stem); used > next {
		next = used
	}
	next++
	r.db.tx.sequences[k] = next
	return next, nil
}

// maxSuffix mayor sufijo numérico de los números con el prefijo stem. Requiere db.mu.
func (db *DB) maxSuffix(namespace, stem string) int64 {
	var numbers []string
	switch namespace {
	case "sale":
		for _, s := range db.tx.sales {
			numbers = append(numbers, s.SaleNumber)
		}
	case "invoice":
		for _, inv := range db.tx.invoices {
			numbers = append(numbers, inv.Number)
		}
	}
	var max int64
	for _, n := range numbers {
		if !strings.HasPrefix(n, stem) {
			continue
		}
		if v, err := strconv.ParseInt(strings.TrimPrefix(n, stem), 10, 64); err == nil && v > max {
			max = v
		}
	}
	return max
}

// SeedSequence fija el último valor emitido (pruebas de colisión).
func (db *DB) SeedSequence(namespace string, day time.Time, last int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tx.sequences[namespace+":"+day.Format("20060102")] = last
}

// InsertSale guarda una venta sin pasar por el contador (números heredados).
func (db *DB) InsertSale(s *entity.Sale) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := *s
	db.tx.sales[s.ID] = &c
}
