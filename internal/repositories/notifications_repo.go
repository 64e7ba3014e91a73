package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	intconfig "nemt/internal/config"
	intdb "nemt/internal/db"
	"nemt/internal/domain/models"
)

const notificationColumns = `id, organization_id, type, title, message, status, metadata, created_at, read_at`

type NotificationsRepo struct {
	DB intdb.DBTX
}

func (r NotificationsRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func scanNotification(row scanner) (models.Notification, error) {
	var (
		n           models.Notification
		typ, status string
		metadata    sql.NullString
		readAt      sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.OrganizationID, &typ, &n.Title, &n.Message, &status, &metadata, &n.CreatedAt, &readAt); err != nil {
		return models.Notification{}, err
	}
	n.Type = models.NotificationType(typ)
	n.Status = models.NotificationStatus(status)
	n.ReadAt = timePtr(readAt)
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &n.Metadata); err != nil {
			return n, fmt.Errorf("decode notification %d metadata: %w", n.ID, err)
		}
	}
	return n, nil
}

func (r NotificationsRepo) Create(ctx context.Context, n *models.Notification) error {
	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return err
	}
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO notifications (organization_id, type, title, message, status, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.OrganizationID, string(n.Type), n.Title, n.Message, string(n.Status), string(meta), n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

func (r NotificationsRepo) GetByID(ctx context.Context, orgID, id int64) (models.Notification, error) {
	row := r.db().QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=? AND organization_id=?`, id, orgID)
	n, err := scanNotification(row)
	return n, notFound(err, "notification")
}

func (r NotificationsRepo) List(ctx context.Context, orgID int64, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE organization_id=? AND status<>?`
	args := []any{orgID, string(models.NotificationArchived)}
	if unreadOnly {
		query += ` AND status=?`
		args = append(args, string(models.NotificationUnread))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r NotificationsRepo) UpdateStatus(ctx context.Context, orgID, id int64, status models.NotificationStatus, readAt *time.Time) error {
	_, err := r.db().ExecContext(ctx, `
		UPDATE notifications SET status=?, read_at=COALESCE(read_at, ?) WHERE id=? AND organization_id=?
	`, string(status), nullTime(readAt), id, orgID)
	if err != nil {
		return fmt.Errorf("update notification %d: %w", id, err)
	}
	return nil
}

func (r NotificationsRepo) MarkAllRead(ctx context.Context, orgID int64, at time.Time) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE notifications SET status=?, read_at=? WHERE organization_id=? AND status=?
	`, string(models.NotificationRead), at, orgID, string(models.NotificationUnread))
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (r NotificationsRepo) CountUnread(ctx context.Context, orgID int64) (int64, error) {
	var n int64
	err := r.db().QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE organization_id=? AND status=?`,
		orgID, string(models.NotificationUnread)).Scan(&n)
	return n, err
}
