package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var _ repository.PrimaryStore = (*Primary)(nil)

type txKey struct{}

type primaryTx struct {
	tenants map[string]*entity.TenantRecord
	stores  map[string]*entity.StoreRecord
}

// Primary almacén de documentos en memoria con transacciones multi-documento.
type Primary struct{ db *DB }

// Primary devuelve el adaptador del almacén principal.
func (db *DB) Primary() *Primary { return &Primary{db: db} }

func (p *Primary) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	tx := &primaryTx{tenants: map[string]*entity.TenantRecord{}, stores: map[string]*entity.StoreRecord{}}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if err := p.db.fail("primary.Commit"); err != nil {
		return err
	}
	for id, t := range tx.tenants {
		p.db.tenantDocs[id] = t
		p.db.writes++
	}
	for id, s := range tx.stores {
		p.db.storeDocs[id] = s
		p.db.writes++
	}
	return nil
}

func txFrom(ctx context.Context) *primaryTx {
	tx, _ := ctx.Value(txKey{}).(*primaryTx)
	return tx
}

func (p *Primary) FindTenantByTaxID(ctx context.Context, taxID string) (*entity.TenantRecord, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if err := p.db.fail("primary.FindTenantByTaxID"); err != nil {
		return nil, err
	}
	if tx := txFrom(ctx); tx != nil {
		for _, t := range tx.tenants {
			if t.TaxID == taxID {
				c := *t
				return &c, nil
			}
		}
	}
	for _, t := range p.db.tenantDocs {
		if t.TaxID == taxID {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (p *Primary) GetTenant(_ context.Context, id string) (*entity.TenantRecord, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if t, ok := p.db.tenantDocs[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (p *Primary) InsertTenant(ctx context.Context, t *entity.TenantRecord) (string, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if err := p.db.fail("primary.InsertTenant"); err != nil {
		return "", err
	}
	c := *t
	c.ID = uuid.New().String()
	if tx := txFrom(ctx); tx != nil {
		tx.tenants[c.ID] = &c
		return c.ID, nil
	}
	p.db.tenantDocs[c.ID] = &c
	p.db.writes++
	return c.ID, nil
}

func (p *Primary) InsertStore(ctx context.Context, s *entity.StoreRecord) (string, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if err := p.db.fail("primary.InsertStore"); err != nil {
		return "", err
	}
	c := *s
	c.ID = uuid.New().String()
	if tx := txFrom(ctx); tx != nil {
		if _, ok := tx.tenants[c.TenantID]; !ok {
			if _, ok := p.db.tenantDocs[c.TenantID]; !ok {
				return "", fmt.Errorf("tenant %s inexistente", c.TenantID)
			}
		}
		tx.stores[c.ID] = &c
		return c.ID, nil
	}
	p.db.storeDocs[c.ID] = &c
	p.db.writes++
	return c.ID, nil
}

func (p *Primary) DeleteTenant(_ context.Context, id string) error {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if err := p.db.fail("primary.DeleteTenant"); err != nil {
		return err
	}
	delete(p.db.tenantDocs, id)
	return nil
}

func (p *Primary) DeleteStore(_ context.Context, id string) error {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if err := p.db.fail("primary.DeleteStore"); err != nil {
		return err
	}
	delete(p.db.storeDocs, id)
	return nil
}
