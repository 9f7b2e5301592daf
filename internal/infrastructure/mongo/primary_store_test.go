package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

func TestTenantDoc_RoundTripBSON(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := tenantDoc{
		ID:           primitive.NewObjectID(),
		Name:         "Tienda Uno",
		TaxID:        "9001234567",
		SecurityCode: "ABCD2345",
		ContactPhone: "+573001234567",
		CreatedBy:    "user-1",
		CreatedAt:    now,
	}
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "9001234567", m["taxId"])
	assert.NotContains(t, m, "address", "omitempty")

	var back tenantDoc
	require.NoError(t, bson.Unmarshal(raw, &back))
	rec := back.toEntity()
	assert.Equal(t, doc.ID.Hex(), rec.ID)
	assert.Equal(t, "Tienda Uno", rec.Name)
	assert.Equal(t, "ABCD2345", rec.SecurityCode)
	assert.True(t, rec.CreatedAt.Equal(now))
}

func TestIDsInvalidos(t *testing.T) {
	s := &PrimaryStore{}
	ctx := context.Background()

	got, err := s.GetTenant(ctx, "no-es-hex")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, s.DeleteTenant(ctx, "no-es-hex"))
	assert.NoError(t, s.DeleteStore(ctx, "zzz"))

	_, err = s.InsertStore(ctx, &entity.StoreRecord{TenantID: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
