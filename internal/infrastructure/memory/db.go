// Package memory implementa los puertos de persistencia en memoria. Se usa en
// pruebas y en desarrollo local; respeta la semántica transaccional de los
// adaptadores reales (rollback completo, decremento condicional de stock).
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

type stockKey struct{ product, area string }

// DB estado compartido por todos los adaptadores en memoria.
type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	// almacén principal
	tenantDocs map[string]*entity.TenantRecord
	storeDocs  map[string]*entity.StoreRecord

	// almacén secundario
	tenants       map[string]*entity.Tenant
	stores        map[string]*entity.Store
	subscriptions map[string]*entity.Subscription
	memberships   map[string]*entity.UserTenantRole
	profiles      map[string]*entity.UserProfile
	joins         map[string]*entity.JoinRequest
	notifications []*entity.Notification
	products      map[string]*entity.Product
	customers     map[string]*entity.Customer

	// tablas transaccionales (se restauran en rollback)
	tx txTables

	failures map[string]error
	once     map[string]error
	writes   int
	now      func() time.Time
}

type txTables struct {
	stock        map[stockKey]*entity.Stock
	movements    []*entity.Movement
	sales        map[string]*entity.Sale
	saleItems    []*entity.SaleItem
	invoices     map[string]*entity.Invoice
	invoiceItems []*entity.InvoiceItem
	payments     []*entity.Payment
	sequences    map[string]int64
}

// New crea una base vacía.
func New() *DB {
	return &DB{
		tenantDocs:    map[string]*entity.TenantRecord{},
		storeDocs:     map[string]*entity.StoreRecord{},
		tenants:       map[string]*entity.Tenant{},
		stores:        map[string]*entity.Store{},
		subscriptions: map[string]*entity.Subscription{},
		memberships:   map[string]*entity.UserTenantRole{},
		profiles:      map[string]*entity.UserProfile{},
		joins:         map[string]*entity.JoinRequest{},
		products:      map[string]*entity.Product{},
		customers:     map[string]*entity.Customer{},
		tx: txTables{
			stock:     map[stockKey]*entity.Stock{},
			sales:     map[string]*entity.Sale{},
			invoices:  map[string]*entity.Invoice{},
			sequences: map[string]int64{},
		},
		failures: map[string]error{},
		once:     map[string]error{},
		now:      time.Now,
	}
}

// FailOn hace que la operación indicada (p. ej. "stores.Create") devuelva err.
// err nil elimina la falla.
func (db *DB) FailOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

// Writes cantidad de escrituras exitosas en cualquiera de los dos almacenes.
func (db *DB) Writes() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.writes
}

// FailOnce como FailOn, pero sólo para la próxima invocación de op.
func (db *DB) FailOnce(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.once[op] = err
}

// must llamarse con db.mu tomado.
func (db *DB) fail(op string) error {
	if err, ok := db.once[op]; ok {
		delete(db.once, op)
		return err
	}
	return db.failures[op]
}

func (tt txTables) clone() txTables {
	out := txTables{
		stock:     make(map[stockKey]*entity.Stock, len(tt.stock)),
		sales:     make(map[string]*entity.Sale, len(tt.sales)),
		invoices:  make(map[string]*entity.Invoice, len(tt.invoices)),
		sequences: make(map[string]int64, len(tt.sequences)),
	}
	for k, v := range tt.stock {
		c := *v
		out.stock[k] = &c
	}
	for k, v := range tt.sales {
		c := *v
		out.sales[k] = &c
	}
	for k, v := range tt.invoices {
		c := *v
		out.invoices[k] = &c
	}
	for k, v := range tt.sequences {
		out.sequences[k] = v
	}
	out.movements = append([]*entity.Movement(nil), tt.movements...)
	out.saleItems = append([]*entity.SaleItem(nil), tt.saleItems...)
	out.invoiceItems = append([]*entity.InvoiceItem(nil), tt.invoiceItems...)
	out.payments = append([]*entity.Payment(nil), tt.payments...)
	return out
}

// ── Inspección para pruebas ──────────────────────────────────────────────────

// TenantDocs registros del almacén principal.
func (db *DB) TenantDocs() []*entity.TenantRecord {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*entity.TenantRecord, 0, len(db.tenantDocs))
	for _, v := range db.tenantDocs {
		c := *v
		out = append(out, &c)
	}
	return out
}

// StoreDocs tiendas del almacén principal.
func (db *DB) StoreDocs() []*entity.StoreRecord {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*entity.StoreRecord, 0, len(db.storeDocs))
	for _, v := range db.storeDocs {
		c := *v
		out = append(out, &c)
	}
	return out
}

// AllTenants espejos de tenants.
func (db *DB) AllTenants() []*entity.Tenant {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*entity.Tenant, 0, len(db.tenants))
	for _, v := range db.tenants {
		c := *v
		out = append(out, &c)
	}
	return out
}

// AllStores espejos de tiendas.
func (db *DB) AllStores() []*entity.Store {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*entity.Store, 0, len(db.stores))
	for _, v := range db.stores {
		c := *v
		out = append(out, &c)
	}
	return out
}

// AllSubscriptions suscripciones.
func (db *DB) AllSubscriptions() []*entity.Subscription {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*entity.Subscription, 0, len(db.subscriptions))
	for _, v := range db.subscriptions {
		c := *v
		out = append(out, &c)
	}
	return out
}

// MembershipsOf membresías de un usuario, ordenadas por fecha de creación.
func (db *DB) MembershipsOf(userID string) []*entity.UserTenantRole {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*entity.UserTenantRole
	for _, v := range db.memberships {
		if v.UserID == userID {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Profile perfil guardado, o nil.
func (db *DB) Profile(userID string) *entity.UserProfile {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.profiles[userID]; ok {
		c := *p
		return &c
	}
	return nil
}

// Notifications notificaciones creadas.
func (db *DB) Notifications() []*entity.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*entity.Notification(nil), db.notifications...)
}

// JoinRequests todas las solicitudes.
func (db *DB) JoinRequests() []*entity.JoinRequest {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*entity.JoinRequest, 0, len(db.joins))
	for _, v := range db.joins {
		c := *v
		out = append(out, &c)
	}
	return out
}

// StockOf cantidad actual de un producto en un área.
func (db *DB) StockOf(productID, areaID string) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s, ok := db.tx.stock[stockKey{productID, areaID}]; ok {
		return s.Quantity
	}
	return 0
}

// Movements movimientos registrados.
func (db *DB) Movements() []*entity.Movement {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*entity.Movement(nil), db.tx.movements...)
}

// Sales ventas registradas.
func (db *DB) Sales() []*entity.Sale {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*entity.Sale, 0, len(db.tx.sales))
	for _, v := range db.tx.sales {
		c := *v
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaleNumber < out[j].SaleNumber })
	return out
}

// Invoices facturas registradas.
func (db *DB) Invoices() []*entity.Invoice {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*entity.Invoice, 0, len(db.tx.invoices))
	for _, v := range db.tx.invoices {
		c := *v
		out = append(out, &c)
	}
	return out
}

// Payments pagos registrados.
func (db *DB) Payments() []*entity.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*entity.Payment(nil), db.tx.payments...)
}

// SetStock fija la cantidad de un producto en un área (datos de prueba).
func (db *DB) SetStock(productID, areaID string, qty int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tx.stock[stockKey{productID, areaID}] = &entity.Stock{ProductID: productID, AreaID: areaID, Quantity: qty, UpdatedAt: db.now()}
}

// SetSubscriptionStatus cambia el estado de la suscripción del tenant (datos de prueba).
func (db *DB) SetSubscriptionStatus(tenantID, status string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, s := range db.subscriptions {
		if s.TenantID == tenantID {
			s.Status = status
		}
	}
}
