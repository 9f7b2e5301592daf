package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/inventory"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

const (
	seqSale    = "sale"
	seqInvoice = "invoice"
)

// ProcessSaleUseCase registra una venta de caja: descuenta inventario por cada línea y, si hay
// cliente, emite la factura pagada con su pago, todo en una sola transacción.
type ProcessSaleUseCase struct {
	txRunner    repository.TxRunner
	inventoryUC InventoryUseCase
	products    repository.ProductRepository
	customers   repository.CustomerRepository
	stores      repository.StoreRepository
	metrics     Metrics
	log         zerolog.Logger
	cfg         Config
	now         func() time.Time
}

// NewProcessSaleUseCase construye el caso de uso. metrics puede ser nil.
func NewProcessSaleUseCase(
	txRunner repository.TxRunner,
	inventoryUC InventoryUseCase,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	stores repository.StoreRepository,
	metrics Metrics,
	log zerolog.Logger,
	cfg Config,
) *ProcessSaleUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.NumberRetries < 1 {
		cfg.NumberRetries = 1
	}
	if cfg.SalePrefix == "" {
		cfg.SalePrefix = "V"
	}
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "F"
	}
	return &ProcessSaleUseCase{
		txRunner:    txRunner,
		inventoryUC: inventoryUC,
		products:    products,
		customers:   customers,
		stores:      stores,
		metrics:     metrics,
		log:         log,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj; pensado para pruebas.
func (uc *ProcessSaleUseCase) WithClock(now func() time.Time) *ProcessSaleUseCase {
	uc.now = now
	return uc
}

// line línea de venta ya resuelta contra el catálogo.
type line struct {
	product   *entity.Product
	quantity  int64
	unitPrice decimal.Decimal
	subtotal  decimal.Decimal
}

// saleResult lo que la transacción deja escrito.
type saleResult struct {
	sale      *entity.Sale
	items     []*entity.SaleItem
	invoice   *entity.Invoice
	payment   *entity.Payment
	remaining map[string]int64 // productID → existencias tras la venta
}

// ProcessSale valida el carrito fuera de la transacción y luego, dentro de ella, vuelve a
// comprobar existencias, numera la venta, descuenta stock y factura. Un choque de numeración
// (ErrConflict) reintenta la transacción completa hasta cfg.NumberRetries veces.
func (uc *ProcessSaleUseCase) ProcessSale(ctx context.Context, tenantID, userID string, in dto.ProcessSaleRequest) (*dto.SaleResponse, error) {
	start := time.Now()
	if tenantID == "" || userID == "" {
		return nil, fmt.Errorf("%w: identidad requerida", domain.ErrUnauthorized)
	}
	quantities, err := validateSale(in)
	if err != nil {
		uc.metrics.SaleFailed("validation")
		return nil, err
	}

	// Validar área y cliente (fuera de la tx, solo lectura)
	area, err := uc.stores.GetByID(ctx, in.AreaID)
	if err != nil {
		return nil, err
	}
	if area == nil || area.TenantID != tenantID {
		return nil, fmt.Errorf("%w: área inexistente", domain.ErrNotFound)
	}
	var customer *entity.Customer
	if in.CustomerID != "" {
		customer, err = uc.customers.GetByID(ctx, in.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil || customer.TenantID != tenantID {
			return nil, fmt.Errorf("%w: cliente inexistente", domain.ErrNotFound)
		}
	}

	now := uc.now()
	lines, err := uc.resolveLines(ctx, tenantID, in, quantities, now)
	if err != nil {
		uc.metrics.SaleFailed("validation")
		return nil, err
	}
	subtotal, tax, total := totals(lines, uc.cfg.TaxRate)

	var res *saleResult
	for attempt := 1; ; attempt++ {
		res, err = uc.runSale(ctx, tenantID, userID, in, customer, lines, subtotal, tax, total, now.UTC())
		if err == nil || !errors.Is(err, domain.ErrConflict) || attempt >= uc.cfg.NumberRetries {
			break
		}
		uc.metrics.NumberConflict()
		uc.log.Warn().Err(err).Int("attempt", attempt).Str("tenant_id", tenantID).Msg("choque de numeración, reintentando venta")
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientStock):
			uc.metrics.SaleFailed("insufficient_stock")
		case errors.Is(err, domain.ErrConflict):
			uc.metrics.SaleFailed("number_conflict")
		default:
			uc.metrics.SaleFailed("error")
		}
		if domain.IsDomainError(err) {
			return nil, err
		}
		uc.log.Error().Err(err).Str("tenant_id", tenantID).Str("area_id", in.AreaID).Msg("venta revertida")
		return nil, fmt.Errorf("procesar venta: %w", err)
	}
	uc.metrics.SaleCompleted(res.sale.Total, time.Since(start))
	uc.log.Info().
		Str("tenant_id", tenantID).
		Str("sale_number", res.sale.SaleNumber).
		Str("total", res.sale.Total.StringFixed(2)).
		Msg("venta registrada")

	for _, l := range lines {
		remaining, ok := res.remaining[l.product.ID]
		if ok && l.product.MinStock > 0 && remaining < l.product.MinStock {
			uc.inventoryUC.NotifyLowStock(ctx, l.product, in.AreaID, remaining, userID)
			delete(res.remaining, l.product.ID)
		}
	}
	return toSaleResponse(res), nil
}

// runSale una sola transacción; cualquier error la revierte completa.
func (uc *ProcessSaleUseCase) runSale(
	ctx context.Context,
	tenantID, userID string,
	in dto.ProcessSaleRequest,
	customer *entity.Customer,
	lines []line,
	subtotal, tax, total decimal.Decimal,
	now time.Time,
) (*saleResult, error) {
	res := &saleResult{remaining: map[string]int64{}}
	day := now.In(uc.cfg.Location)

	err := uc.txRunner.Run(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		// 1) Re-validar existencias con la fila bloqueada: el carrito pudo armarse con datos viejos
		if err := checkStock(ctx, uow, in.AreaID, lines); err != nil {
			return err
		}

		// 2) Número de venta: prefijo-AAAAMMDD-NNNN
		saleNumber, err := nextNumber(ctx, uow, seqSale, uc.cfg.SalePrefix, day)
		if err != nil {
			return err
		}
		sale := &entity.Sale{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			AreaID:        in.AreaID,
			SaleNumber:    saleNumber,
			Subtotal:      subtotal,
			Tax:           tax,
			Total:         total,
			TaxRate:       uc.cfg.TaxRate,
			PaymentMethod: in.PaymentMethod,
			Status:        entity.SaleStatusCompleted,
			CreatedBy:     userID,
			CreatedAt:     now,
		}
		if customer != nil {
			sale.CustomerID = customer.ID
		}
		if err := uow.Sales.Create(ctx, sale); err != nil {
			return err
		}
		res.sale = sale

		// 3) Líneas y salida de inventario por cada una
		for _, l := range lines {
			item := &entity.SaleItem{
				ID:        uuid.New().String(),
				SaleID:    sale.ID,
				ProductID: l.product.ID,
				Quantity:  l.quantity,
				UnitPrice: l.unitPrice,
				Subtotal:  l.subtotal.Round(2),
			}
			if err := uow.Sales.CreateItem(ctx, item); err != nil {
				return err
			}
			res.items = append(res.items, item)

			remaining, err := uc.inventoryUC.ApplySaleOutInTx(ctx, uow, l.product, in.AreaID, userID, sale.ID, l.quantity, now)
			if err != nil {
				return err
			}
			res.remaining[l.product.ID] = remaining
		}

		// 4) Cliente identificado: factura pagada + pago
		if customer == nil {
			return nil
		}
		invoiceNumber, err := nextNumber(ctx, uow, seqInvoice, uc.cfg.InvoicePrefix, day)
		if err != nil {
			return err
		}
		inv := &entity.Invoice{
			ID:         uuid.New().String(),
			TenantID:   tenantID,
			CustomerID: customer.ID,
			SaleID:     sale.ID,
			Number:     invoiceNumber,
			Subtotal:   subtotal,
			Tax:        tax,
			Total:      total,
			Status:     entity.InvoiceStatusPaid,
			IssuedAt:   now,
			CreatedAt:  now,
		}
		if err := uow.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, l := range lines {
			if err := uow.Invoices.CreateItem(ctx, &entity.InvoiceItem{
				ID:        uuid.New().String(),
				InvoiceID: inv.ID,
				ProductID: l.product.ID,
				Quantity:  l.quantity,
				UnitPrice: l.unitPrice,
				TaxRate:   uc.cfg.TaxRate,
				Subtotal:  l.subtotal.Round(2),
			}); err != nil {
				return err
			}
		}
		if err := uow.Sales.AttachInvoice(ctx, sale.ID, inv.ID); err != nil {
			return err
		}
		sale.InvoiceID = inv.ID
		res.invoice = inv

		pay := &entity.Payment{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			InvoiceID: inv.ID,
			Amount:    total,
			Method:    in.PaymentMethod,
			Status:    entity.PaymentStatusCompleted,
			PaidAt:    now,
		}
		if err := uow.Invoices.CreatePayment(ctx, pay); err != nil {
			return err
		}
		res.payment = pay
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// checkStock reporta todos los productos cortos antes de escribir nada.
// Las cantidades se agregan por producto para carritos con líneas repetidas.
func checkStock(ctx context.Context, uow repository.UnitOfWork, areaID string, lines []line) error {
	requested := map[string]int64{}
	byID := map[string]*entity.Product{}
	var order []string
	for _, l := range lines {
		if _, seen := requested[l.product.ID]; !seen {
			order = append(order, l.product.ID)
		}
		requested[l.product.ID] += l.quantity
		byID[l.product.ID] = l.product
	}
	// orden estable para tomar los bloqueos siempre en la misma secuencia
	sort.Strings(order)

	var shortages []domain.StockShortage
	for _, id := range order {
		st, err := uow.Stock.GetForUpdate(ctx, id, areaID)
		if err != nil {
			return err
		}
		var available int64
		if st != nil {
			available = st.Quantity
		}
		if available < requested[id] {
			shortages = append(shortages, domain.StockShortage{
				ProductID:   id,
				ProductName: byID[id].Name,
				AreaID:      areaID,
				Requested:   requested[id],
				Available:   available,
			})
		}
	}
	if len(shortages) > 0 {
		return &domain.InsufficientStockError{Shortages: shortages}
	}
	return nil
}

func nextNumber(ctx context.Context, uow repository.UnitOfWork, namespace, prefix string, day time.Time) (string, error) {
	stem := fmt.Sprintf("%s-%s-", prefix, day.Format("20060102"))
	seq, err := uow.Sequences.Next(ctx, namespace, day, stem)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", stem, seq), nil
}

// resolveLines carga los productos del tenant y fija el precio de cada línea.
func (uc *ProcessSaleUseCase) resolveLines(ctx context.Context, tenantID string, in dto.ProcessSaleRequest, quantities []int64, now time.Time) ([]line, error) {
	fe := domain.NewValidationError()
	cache := map[string]*entity.Product{}
	lines := make([]line, 0, len(in.Items))
	for i, item := range in.Items {
		product, ok := cache[item.ProductID]
		if !ok {
			p, err := uc.products.GetByID(ctx, item.ProductID)
			if err != nil {
				return nil, err
			}
			if p == nil || p.TenantID != tenantID {
				return nil, fmt.Errorf("%w: producto %s inexistente", domain.ErrNotFound, item.ProductID)
			}
			cache[item.ProductID] = p
			product = p
		}
		if product.IsExpired(now.In(uc.cfg.Location)) {
			fe.Add(fmt.Sprintf("items[%d].product_id", i), "el producto está vencido")
			continue
		}
		price := product.EffectivePrice(now)
		if item.UnitPrice != nil {
			price = *item.UnitPrice
		}
		lines = append(lines, line{
			product:   product,
			quantity:  quantities[i],
			unitPrice: price,
			subtotal:  price.Mul(decimal.NewFromInt(quantities[i])),
		})
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	return lines, nil
}

// totals subtotal = Σ líneas, impuesto = subtotal × tasa, total = subtotal + impuesto; a 2 decimales.
// Las líneas se suman exactas y se redondea una sola vez.
func totals(lines []line, taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	for _, l := range lines {
		subtotal = subtotal.Add(l.subtotal)
	}
	subtotal = subtotal.Round(2)
	tax = subtotal.Mul(taxRate).Round(2)
	return subtotal, tax, subtotal.Add(tax)
}

// validateSale reúne los errores de todos los campos y convierte cantidades a enteros.
func validateSale(in dto.ProcessSaleRequest) ([]int64, error) {
	fe := domain.NewValidationError()
	if err := dto.Validate(in); err != nil {
		if !errors.As(err, &fe) {
			return nil, err
		}
	}
	quantities := make([]int64, len(in.Items))
	for i, item := range in.Items {
		q, ok := inventory.ParseQuantity(item.Quantity)
		if !ok {
			fe.Add(fmt.Sprintf("items[%d].quantity", i), "debe ser un entero positivo")
		}
		quantities[i] = q
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			fe.Add(fmt.Sprintf("items[%d].unit_price", i), "no puede ser negativo")
		}
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	return quantities, nil
}

func toSaleResponse(res *saleResult) *dto.SaleResponse {
	s := res.sale
	out := &dto.SaleResponse{
		ID:         s.ID,
		SaleNumber: s.SaleNumber,
		AreaID:     s.AreaID,
		CustomerID: s.CustomerID,
		Subtotal:   s.Subtotal,
		Tax:        s.Tax,
		Total:      s.Total,
		TaxRate:    s.TaxRate,
		Status:     s.Status,
		Items:      make([]dto.SaleItemResponse, 0, len(res.items)),
		CreatedAt:  s.CreatedAt,
	}
	for _, it := range res.items {
		out.Items = append(out.Items, dto.SaleItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	if res.invoice != nil {
		out.Invoice = &dto.InvoiceResponse{
			ID:       res.invoice.ID,
			Number:   res.invoice.Number,
			Status:   res.invoice.Status,
			Subtotal: res.invoice.Subtotal,
			Tax:      res.invoice.Tax,
			Total:    res.invoice.Total,
		}
	}
	if res.payment != nil {
		out.Payment = &dto.PaymentResponse{
			ID:     res.payment.ID,
			Amount: res.payment.Amount,
			Method: res.payment.Method,
			Status: res.payment.Status,
		}
	}
	return out
}
