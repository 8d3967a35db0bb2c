package repository

import (
	"context"
	"time"

	"github.com/edulite/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, user_id, kind, title, body, data, is_read, created_at`

func (r *PostgresRepository) CreateNotification(ctx context.Context, params domain.CreateNotificationParams) (*domain.Notification, error) {
	data := params.Data
	if data == nil {
		data = domain.Map{}
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, kind, title, body, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+notificationColumns,
		params.UserID, params.Kind, params.Title, params.Body, data,
	)
	return scanNotification(row)
}

func (r *PostgresRepository) GetNotificationByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	row := r.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	return scanNotification(row)
}

func (r *PostgresRepository) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifs := []*domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, notificationID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, notificationID)
	return err
}

func (r *PostgresRepository) UpsertFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO fcm_tokens (user_id, token) VALUES ($1, $2)
		ON CONFLICT (user_id, token) DO UPDATE SET updated_at = NOW()`,
		userID, token,
	)
	return err
}

func (r *PostgresRepository) GetFCMTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT token FROM fcm_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PostgresRepository) DeleteFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM fcm_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	return err
}

// PruneReadNotifications deletes read notifications created before cutoff
func (r *PostgresRepository) PruneReadNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Data, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}
