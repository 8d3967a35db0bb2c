package repository

import (
	"context"
	"fmt"

	"github.com/edulite/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const friendRequestColumns = `id, sender_profile_id, receiver_profile_id, message, created_at`

// CreateFriendRequest inserts a pending request. The unique pair index turns a
// racing duplicate into ErrDuplicateRequest.
func (r *PostgresRepository) CreateFriendRequest(ctx context.Context, params domain.CreateFriendRequestParams) (*domain.FriendRequest, error) {
	query := `
		INSERT INTO friend_requests (sender_profile_id, receiver_profile_id, message)
		VALUES ($1, $2, $3)
		RETURNING ` + friendRequestColumns

	row := r.db.QueryRow(ctx, query, params.SenderProfileID, params.ReceiverProfileID, params.Message)
	req, err := scanFriendRequest(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateRequest
		}
		return nil, err
	}
	return req, nil
}

// GetFriendRequestByID retrieves a pending request by ID
func (r *PostgresRepository) GetFriendRequestByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+friendRequestColumns+` FROM friend_requests WHERE id = $1`, id)
	return scanFriendRequest(row)
}

// GetFriendRequestBetween finds the request between a and b in either direction
func (r *PostgresRepository) GetFriendRequestBetween(ctx context.Context, a, b uuid.UUID) (*domain.FriendRequest, error) {
	query := `
		SELECT ` + friendRequestColumns + `
		FROM friend_requests
		WHERE (sender_profile_id = $1 AND receiver_profile_id = $2)
		   OR (sender_profile_id = $2 AND receiver_profile_id = $1)
		LIMIT 1
	`
	return scanFriendRequest(r.db.QueryRow(ctx, query, a, b))
}

// ListIncomingFriendRequests lists requests received by a profile, newest first
func (r *PostgresRepository) ListIncomingFriendRequests(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*domain.FriendRequest, error) {
	query := `
		SELECT ` + friendRequestColumns + `
		FROM friend_requests
		WHERE receiver_profile_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.collectFriendRequests(ctx, query, profileID, limit, offset)
}

// ListOutgoingFriendRequests lists requests sent by a profile, newest first
func (r *PostgresRepository) ListOutgoingFriendRequests(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*domain.FriendRequest, error) {
	query := `
		SELECT ` + friendRequestColumns + `
		FROM friend_requests
		WHERE sender_profile_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.collectFriendRequests(ctx, query, profileID, limit, offset)
}

// ResolveFriendRequest locks the request row with SELECT ... FOR UPDATE, runs
// fn against the same transaction and deletes the row. A concurrent resolver
// blocks on the lock and then finds no row.
func (r *PostgresRepository) ResolveFriendRequest(ctx context.Context, id uuid.UUID, fn domain.ResolveFunc) (*domain.FriendRequest, error) {
	var resolved *domain.FriendRequest
	err := r.withTx(ctx, func(tx *PostgresRepository) error {
		row := tx.db.QueryRow(ctx,
			`SELECT `+friendRequestColumns+` FROM friend_requests WHERE id = $1 FOR UPDATE`,
			id,
		)
		req, err := scanFriendRequest(row)
		if err != nil {
			return err
		}

		if err := fn(ctx, req, tx); err != nil {
			return err
		}

		tag, err := tx.db.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete friend request: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return domain.ErrNotFound
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (r *PostgresRepository) collectFriendRequests(ctx context.Context, query string, args ...any) ([]*domain.FriendRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []*domain.FriendRequest{}
	for rows.Next() {
		req, err := scanFriendRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanFriendRequest(row pgx.Row) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	err := row.Scan(
		&req.ID,
		&req.SenderProfileID,
		&req.ReceiverProfileID,
		&req.Message,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}
