package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// NotificationRepository persists notifications.
type NotificationRepository struct {
	db *sqlx.DB
	queryRunner
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB, opts ...Option) *NotificationRepository {
	return &NotificationRepository{db: db, queryRunner: newQueryRunner(opts)}
}

// Create inserts the notification and assigns its id.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	const query = `INSERT INTO notifications (recipient_user_id, sender_user_id, message, notification_type, date_sent, is_read)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	err := r.run(ctx, "notifications.create", func(ctx context.Context) error {
		return r.db.QueryRowxContext(ctx, query, n.RecipientUserID, n.SenderUserID, n.Message, n.Type, n.DateSent, n.IsRead).Scan(&n.ID)
	})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns a recipient's notifications, newest first, with the total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	where := "recipient_user_id = $1"
	if filter.UnreadOnly {
		where += " AND is_read = FALSE"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, recipient_user_id, sender_user_id, message, notification_type, date_sent, is_read
FROM notifications WHERE %s
ORDER BY date_sent DESC, id DESC
LIMIT %d OFFSET %d`, where, size, offset)
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notifications WHERE %s", where)

	var rows []models.Notification
	var total int
	err := r.run(ctx, "notifications.list", func(ctx context.Context) error {
		if err := r.db.SelectContext(ctx, &rows, query, filter.RecipientUserID); err != nil {
			return err
		}
		return r.db.GetContext(ctx, &total, countQuery, filter.RecipientUserID)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return rows, total, nil
}

// MarkRead flags a recipient's notification as read; sql.ErrNoRows when it
// does not exist or belongs to someone else.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientUserID string, id int64) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_user_id = $2`
	var affected int64
	err := r.run(ctx, "notifications.mark_read", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, query, id, recipientUserID)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
