// Package mongo implementa el almacén principal de documentos (tenants y tiendas)
// sobre MongoDB. Las transacciones multi-documento requieren un replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
	"github.com/jhoicas/comercio-api/pkg/config"
)

const (
	tenantsCollection = "tenants"
	storesCollection  = "stores"
)

var _ repository.PrimaryStore = (*PrimaryStore)(nil)

type tenantDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	TaxID        string             `bson:"taxId"`
	SecurityCode string             `bson:"securityCode"`
	ContactEmail string             `bson:"contactEmail,omitempty"`
	ContactPhone string             `bson:"contactPhone,omitempty"`
	Address      string             `bson:"address,omitempty"`
	CreatedBy    string             `bson:"createdBy"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

type storeDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TenantID  primitive.ObjectID `bson:"tenantId"`
	Name      string             `bson:"name"`
	Address   string             `bson:"address,omitempty"`
	Phone     string             `bson:"phone,omitempty"`
	IsDefault bool               `bson:"isDefault"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// PrimaryStore adaptador de repository.PrimaryStore.
type PrimaryStore struct {
	client  *mongo.Client
	tenants *mongo.Collection
	stores  *mongo.Collection
}

// Connect abre el cliente, verifica el primario y asegura los índices.
func Connect(ctx context.Context, cfg config.MongoConfig) (*PrimaryStore, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(cfg.Timeout).
		SetWriteConcern(writeconcern.Majority()).
		SetReadConcern(readconcern.Majority())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("conectar mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := New(client, cfg.Database)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New envuelve un cliente ya conectado.
func New(client *mongo.Client, database string) *PrimaryStore {
	db := client.Database(database)
	return &PrimaryStore{
		client:  client,
		tenants: db.Collection(tenantsCollection),
		stores:  db.Collection(storesCollection),
	}
}

// EnsureIndexes crea el índice único de NIT y el de tiendas por tenant.
func (s *PrimaryStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.tenants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "taxId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("ux_tax_id"),
	})
	if err != nil {
		return fmt.Errorf("índice tenants.taxId: %w", err)
	}
	_, err = s.stores.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenantId", Value: 1}},
		Options: options.Index().SetName("ix_tenant"),
	})
	if err != nil {
		return fmt.Errorf("índice stores.tenantId: %w", err)
	}
	return nil
}

// Ping para el health check.
func (s *PrimaryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close desconecta el cliente.
func (s *PrimaryStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WithTransaction ejecuta fn en una sesión con transacción snapshot y escritura majority.
// El driver reintenta fn ante errores transitorios, así que fn no debe tener efectos fuera del txCtx.
func (s *PrimaryStore) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("iniciar sesión: %w", err)
	}
	defer sess.EndSession(context.Background())

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txOpts)
	return err
}

func (s *PrimaryStore) FindTenantByTaxID(ctx context.Context, taxID string) (*entity.TenantRecord, error) {
	var doc tenantDoc
	err := s.tenants.FindOne(ctx, bson.M{"taxId": taxID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("buscar tenant por NIT: %w", err)
	}
	return doc.toEntity(), nil
}

func (s *PrimaryStore) GetTenant(ctx context.Context, id string) (*entity.TenantRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var doc tenantDoc
	if err := s.tenants.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("obtener tenant: %w", err)
	}
	return doc.toEntity(), nil
}

// InsertTenant inserta el documento y devuelve su ID. NIT repetido: domain.ErrDuplicate.
func (s *PrimaryStore) InsertTenant(ctx context.Context, t *entity.TenantRecord) (string, error) {
	doc := tenantDoc{
		ID:           primitive.NewObjectID(),
		Name:         t.Name,
		TaxID:        t.TaxID,
		SecurityCode: t.SecurityCode,
		ContactEmail: t.ContactEmail,
		ContactPhone: t.ContactPhone,
		Address:      t.Address,
		CreatedBy:    t.CreatedBy,
		CreatedAt:    t.CreatedAt,
	}
	if _, err := s.tenants.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", domain.ErrDuplicate
		}
		return "", fmt.Errorf("insertar tenant: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (s *PrimaryStore) InsertStore(ctx context.Context, st *entity.StoreRecord) (string, error) {
	tenantID, err := primitive.ObjectIDFromHex(st.TenantID)
	if err != nil {
		return "", fmt.Errorf("tenant %q: %w", st.TenantID, domain.ErrNotFound)
	}
	doc := storeDoc{
		ID:        primitive.NewObjectID(),
		TenantID:  tenantID,
		Name:      st.Name,
		Address:   st.Address,
		Phone:     st.Phone,
		IsDefault: st.IsDefault,
		CreatedAt: st.CreatedAt,
	}
	if _, err := s.stores.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insertar tienda: %w", err)
	}
	return doc.ID.Hex(), nil
}

// DeleteTenant compensación; borrar un documento inexistente no es error.
func (s *PrimaryStore) DeleteTenant(ctx context.Context, id string) error {
	return s.deleteByID(ctx, s.tenants, id)
}

func (s *PrimaryStore) DeleteStore(ctx context.Context, id string) error {
	return s.deleteByID(ctx, s.stores, id)
}

func (s *PrimaryStore) deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("borrar %s: %w", coll.Name(), err)
	}
	return nil
}

func (d tenantDoc) toEntity() *entity.TenantRecord {
	return &entity.TenantRecord{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		TaxID:        d.TaxID,
		SecurityCode: d.SecurityCode,
		ContactEmail: d.ContactEmail,
		ContactPhone: d.ContactPhone,
		Address:      d.Address,
		CreatedBy:    d.CreatedBy,
		CreatedAt:    d.CreatedAt,
	}
}
