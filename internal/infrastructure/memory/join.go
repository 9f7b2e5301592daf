package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var (
	_ repository.JoinRequestRepository  = (*JoinRequests)(nil)
	_ repository.NotificationRepository = (*Notifications)(nil)
)

// JoinRequests solicitudes de ingreso en memoria.
type JoinRequests struct{ db *DB }

// JoinRequestsRepo devuelve el repositorio.
func (db *DB) JoinRequestsRepo() *JoinRequests { return &JoinRequests{db: db} }

func (r *JoinRequests) Create(_ context.Context, j *entity.JoinRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("joins.Create"); err != nil {
		return err
	}
	for _, o := range r.db.joins {
		if o.UserID == j.UserID && o.TenantID == j.TenantID && o.Status == entity.JoinStatusPending {
			return domain.ErrDuplicate
		}
	}
	c := *j
	r.db.joins[j.ID] = &c
	r.db.writes++
	return nil
}

func (r *JoinRequests) GetByID(_ context.Context, id string) (*entity.JoinRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if j, ok := r.db.joins[id]; ok {
		c := *j
		return &c, nil
	}
	return nil, nil
}

func (r *JoinRequests) FindPending(_ context.Context, userID, tenantID string) (*entity.JoinRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, j := range r.db.joins {
		if j.UserID == userID && j.TenantID == tenantID && j.Status == entity.JoinStatusPending {
			c := *j
			return &c, nil
		}
	}
	return nil, nil
}

func (r *JoinRequests) FindLatestRejected(_ context.Context, userID, tenantID string) (*entity.JoinRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var latest *entity.JoinRequest
	for _, j := range r.db.joins {
		if j.UserID != userID || j.TenantID != tenantID || j.Status != entity.JoinStatusRejected {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

func (r *JoinRequests) ListPending(_ context.Context, tenantID string) ([]*entity.JoinRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.JoinRequest
	for _, j := range r.db.joins {
		if j.TenantID == tenantID && j.Status == entity.JoinStatusPending {
			c := *j
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

func (r *JoinRequests) Resolve(_ context.Context, j *entity.JoinRequest) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("joins.Resolve"); err != nil {
		return false, err
	}
	cur, ok := r.db.joins[j.ID]
	if !ok || cur.Status != entity.JoinStatusPending {
		return false, nil
	}
	cur.Status = j.Status
	cur.ReviewedBy = j.ReviewedBy
	cur.ReviewedAt = j.ReviewedAt
	cur.UpdatedAt = j.UpdatedAt
	r.db.writes++
	return true, nil
}

func (r *JoinRequests) Reopen(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if j, ok := r.db.joins[id]; ok {
		j.Status = entity.JoinStatusPending
		j.ReviewedBy = ""
		j.ReviewedAt = nil
	}
	return nil
}

// Backdate mueve la fecha de creación de una solicitud (pruebas de espera).
func (db *DB) Backdate(id string, by func(*entity.JoinRequest)) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if j, ok := db.joins[id]; ok {
		by(j)
	}
}

// Notifications notificaciones en memoria.
type Notifications struct{ db *DB }

// NotificationsRepo devuelve el repositorio.
func (db *DB) NotificationsRepo() *Notifications { return &Notifications{db: db} }

func (r *Notifications) Create(_ context.Context, n *entity.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("notifications.Create"); err != nil {
		return err
	}
	c := *n
	r.db.notifications = append(r.db.notifications, &c)
	return nil
}

func (r *Notifications) ListByRecipient(_ context.Context, recipientID string, limit int) ([]*entity.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Notification
	for i := len(r.db.notifications) - 1; i >= 0; i-- {
		n := r.db.notifications[i]
		if n.RecipientID == recipientID {
			c := *n
			out = append(out, &c)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
