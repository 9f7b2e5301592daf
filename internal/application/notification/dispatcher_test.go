package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/comercio-api/internal/application/notification"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/infrastructure/memory"
)

func seedAdmins(t *testing.T, db *memory.DB, tenantID string, users ...string) {
	t.Helper()
	ctx := context.Background()
	for i, u := range users {
		require.NoError(t, db.Memberships().Create(ctx, &entity.UserTenantRole{
			ID: tenantID + "-m" + string(rune('0'+i)), UserID: u, TenantID: tenantID, Role: entity.RoleAdministrator,
		}))
	}
	require.NoError(t, db.Memberships().Create(ctx, &entity.UserTenantRole{
		ID: tenantID + "-emp", UserID: "empleado", TenantID: tenantID, Role: entity.RoleEmployee,
	}))
}

func newDispatcher(db *memory.DB) *notification.Dispatcher {
	return notification.NewDispatcher(db.Memberships(), db.NotificationsRepo(), zerolog.Nop(), notification.Options{Workers: 2, QueueSize: 8, Timeout: time.Second})
}

func TestDeliver_SinDestinatariosVaAAdministradores(t *testing.T) {
	db := memory.New()
	seedAdmins(t, db, "t1", "ana", "luis")
	d := newDispatcher(db)
	defer d.Close()

	n, err := d.Deliver(context.Background(), notification.Event{
		TenantID: "t1", Category: entity.NotificationInventory, Title: "Stock bajo", Message: "queda 1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := db.Notifications()
	require.Len(t, got, 2)
	recipients := []string{got[0].RecipientID, got[1].RecipientID}
	assert.ElementsMatch(t, []string{"ana", "luis"}, recipients)
	for _, x := range got {
		assert.Equal(t, "t1", x.TenantID)
		assert.Equal(t, entity.NotificationInventory, x.Category)
		assert.NotEmpty(t, x.ID)
	}
}

func TestDeliver_DestinatariosExplicitosSinDuplicados(t *testing.T) {
	db := memory.New()
	d := newDispatcher(db)
	defer d.Close()

	n, err := d.Deliver(context.Background(), notification.Event{
		TenantID: "t1", Category: entity.NotificationJoinRequest, Recipients: []string{"u1", "u1", "", "u2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, db.Notifications(), 2)
}

func TestDeliver_SinAdministradoresNoHaceNada(t *testing.T) {
	db := memory.New()
	d := newDispatcher(db)
	defer d.Close()

	n, err := d.Deliver(context.Background(), notification.Event{TenantID: "vacio"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, db.Notifications())
}

func TestDeliver_ErrorAlResolverAdministradores(t *testing.T) {
	db := memory.New()
	boom := errors.New("sin conexión")
	db.FailOn("memberships.ListAdmins", boom)
	d := newDispatcher(db)
	defer d.Close()

	n, err := d.Deliver(context.Background(), notification.Event{TenantID: "t1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
}

func TestDeliver_EntregaParcial(t *testing.T) {
	db := memory.New()
	seedAdmins(t, db, "t1", "ana", "luis", "eva")
	boom := errors.New("insert falló")
	db.FailOnce("notifications.Create", boom)
	d := newDispatcher(db)
	defer d.Close()

	n, err := d.Deliver(context.Background(), notification.Event{TenantID: "t1", Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, n)
	assert.Len(t, db.Notifications(), 2)
}

func TestPublish_CloseEsperaLaEntrega(t *testing.T) {
	db := memory.New()
	seedAdmins(t, db, "t1", "ana")
	d := newDispatcher(db)

	for i := 0; i < 5; i++ {
		d.Publish(context.Background(), notification.Event{TenantID: "t1", Title: "aviso"})
	}
	d.Close()
	assert.Len(t, db.Notifications(), 5)

	// cerrado: se descarta sin bloquear ni entrar en pánico
	d.Publish(context.Background(), notification.Event{TenantID: "t1"})
	d.Close()
	assert.Len(t, db.Notifications(), 5)
}

func TestPublish_FalloDeEntregaNoPropaga(t *testing.T) {
	db := memory.New()
	seedAdmins(t, db, "t1", "ana")
	db.FailOn("notifications.Create", errors.New("caído"))
	d := newDispatcher(db)

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), notification.Event{TenantID: "t1"})
		d.Close()
	})
	assert.Empty(t, db.Notifications())
}
