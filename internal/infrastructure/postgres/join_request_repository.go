package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var (
	_ repository.JoinRequestRepository  = (*JoinRequestRepo)(nil)
	_ repository.NotificationRepository = (*NotificationRepo)(nil)
)

// JoinRequestRepo solicitudes de ingreso. El índice parcial ux_join_requests_pending
// garantiza una sola pendiente por (usuario, tenant).
type JoinRequestRepo struct {
	q Querier
}

// NewJoinRequestRepository construye el adaptador.
func NewJoinRequestRepository(q Querier) *JoinRequestRepo {
	return &JoinRequestRepo{q: q}
}

const joinColumns = `id, tenant_id, user_id, status, reviewed_by, reviewed_at, created_at, updated_at`

func (r *JoinRequestRepo) Create(ctx context.Context, j *entity.JoinRequest) error {
	query := `INSERT INTO join_requests (` + joinColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		j.ID, j.TenantID, j.UserID, j.Status, nullIfEmpty(j.ReviewedBy), j.ReviewedAt, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert join request: %w", err)
	}
	return nil
}

func (r *JoinRequestRepo) GetByID(ctx context.Context, id string) (*entity.JoinRequest, error) {
	return r.getOne(ctx, `SELECT `+joinColumns+` FROM join_requests WHERE id = $1`, id)
}

func (r *JoinRequestRepo) FindPending(ctx context.Context, userID, tenantID string) (*entity.JoinRequest, error) {
	query := `SELECT ` + joinColumns + ` FROM join_requests WHERE user_id = $1 AND tenant_id = $2 AND status = $3`
	return r.getOne(ctx, query, userID, tenantID, entity.JoinStatusPending)
}

func (r *JoinRequestRepo) FindLatestRejected(ctx context.Context, userID, tenantID string) (*entity.JoinRequest, error) {
	query := `
		SELECT ` + joinColumns + ` FROM join_requests
		WHERE user_id = $1 AND tenant_id = $2 AND status = $3
		ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, userID, tenantID, entity.JoinStatusRejected)
}

func (r *JoinRequestRepo) getOne(ctx context.Context, query string, args ...any) (*entity.JoinRequest, error) {
	j, err := scanJoinRequest(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get join request: %w", err)
	}
	return j, nil
}

func (r *JoinRequestRepo) ListPending(ctx context.Context, tenantID string) ([]*entity.JoinRequest, error) {
	query := `SELECT ` + joinColumns + ` FROM join_requests WHERE tenant_id = $1 AND status = $2 ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, tenantID, entity.JoinStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	defer rows.Close()
	var list []*entity.JoinRequest
	for rows.Next() {
		j, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

// Resolve sólo actualiza si la solicitud sigue pendiente; dos revisiones simultáneas no se pisan.
func (r *JoinRequestRepo) Resolve(ctx context.Context, j *entity.JoinRequest) (bool, error) {
	query := `
		UPDATE join_requests SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $5
		WHERE id = $1 AND status = $6`
	tag, err := r.q.Exec(ctx, query, j.ID, j.Status, nullIfEmpty(j.ReviewedBy), j.ReviewedAt, j.UpdatedAt, entity.JoinStatusPending)
	if err != nil {
		return false, fmt.Errorf("resolve join request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Reopen devuelve la solicitud a pendiente (compensación de una aprobación fallida).
func (r *JoinRequestRepo) Reopen(ctx context.Context, id string) error {
	query := `UPDATE join_requests SET status = $2, reviewed_by = NULL, reviewed_at = NULL, updated_at = now() WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id, entity.JoinStatusPending); err != nil {
		return fmt.Errorf("reopen join request: %w", err)
	}
	return nil
}

func scanJoinRequest(row pgxScanner) (*entity.JoinRequest, error) {
	var (
		j          entity.JoinRequest
		reviewedBy *string
	)
	if err := row.Scan(&j.ID, &j.TenantID, &j.UserID, &j.Status, &reviewedBy, &j.ReviewedAt, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.ReviewedBy = fromNull(reviewedBy)
	return &j, nil
}

// NotificationRepo notificaciones por destinatario.
type NotificationRepo struct {
	q Querier
}

// NewNotificationRepository construye el adaptador.
func NewNotificationRepository(q Querier) *NotificationRepo {
	return &NotificationRepo{q: q}
}

func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (id, tenant_id, recipient_id, category, title, message, link, created_by, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		n.ID, n.TenantID, n.RecipientID, n.Category, n.Title, nullIfEmpty(n.Message), nullIfEmpty(n.Link),
		nullIfEmpty(n.CreatedBy), n.ReadAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*entity.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, tenant_id, recipient_id, category, title, message, link, created_by, read_at, created_at
		FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var list []*entity.Notification
	for rows.Next() {
		var (
			n                        entity.Notification
			message, link, createdBy *string
		)
		if err := rows.Scan(&n.ID, &n.TenantID, &n.RecipientID, &n.Category, &n.Title, &message, &link, &createdBy, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Message, n.Link, n.CreatedBy = fromNull(message), fromNull(link), fromNull(createdBy)
		list = append(list, &n)
	}
	return list, rows.Err()
}
