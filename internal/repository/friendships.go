package repository

import (
	"context"

	"github.com/edulite/backend/internal/domain"
	"github.com/google/uuid"
)

// AreFriends checks the adjacency index for a -> b
func (r *PostgresRepository) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM profile_friends WHERE profile_id = $1 AND friend_id = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, a, b).Scan(&exists)
	return exists, err
}

// MutualFriends intersects the friend sets of a and b
func (r *PostgresRepository) MutualFriends(ctx context.Context, a, b uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT fa.friend_id
		FROM profile_friends fa
		JOIN profile_friends fb ON fb.friend_id = fa.friend_id
		WHERE fa.profile_id = $1 AND fb.profile_id = $2
		  AND fa.friend_id <> $1 AND fa.friend_id <> $2
		ORDER BY fa.friend_id
	`
	return r.collectIDs(ctx, query, a, b)
}

// FriendsOf lists the friend set of a profile
func (r *PostgresRepository) FriendsOf(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT friend_id FROM profile_friends WHERE profile_id = $1 ORDER BY created_at, friend_id`
	return r.collectIDs(ctx, query, profileID)
}

// AddFriendship inserts both directions in a single statement
func (r *PostgresRepository) AddFriendship(ctx context.Context, a, b uuid.UUID) error {
	if a == b {
		return domain.ErrSelfRequest
	}
	query := `
		INSERT INTO profile_friends (profile_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, a, b)
	return err
}

func (r *PostgresRepository) collectIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
