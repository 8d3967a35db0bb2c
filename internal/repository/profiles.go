package repository

import (
	"context"
	"strings"

	"github.com/edulite/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, user_id, username, full_name, email, bio, is_active,
	search_visibility, profile_visibility, show_full_name, show_email,
	allow_friend_requests, allow_chat_invites, created_at, updated_at`

// CreateProfile inserts a profile for an identity. Used by seeding and tests;
// registration itself lives outside this service.
func (r *PostgresRepository) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	query := `
		INSERT INTO profiles (user_id, username, full_name, email, bio, is_active,
			search_visibility, profile_visibility, show_full_name, show_email,
			allow_friend_requests, allow_chat_invites)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + profileColumns

	row := r.db.QueryRow(ctx, query,
		p.UserID,
		p.Username,
		p.FullName,
		p.Email,
		p.Bio,
		p.IsActive,
		p.SearchVisibility,
		p.ProfileVisibility,
		p.ShowFullName,
		p.ShowEmail,
		p.AllowFriendRequests,
		p.AllowChatInvites,
	)
	profile, err := scanProfile(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrProfileExists
		}
		return nil, err
	}
	return profile, nil
}

// GetProfileByID retrieves a profile by ID
func (r *PostgresRepository) GetProfileByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	row := r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// GetProfileByUserID retrieves the profile owned by an identity
func (r *PostgresRepository) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	row := r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

// GetProfilesByIDs retrieves profiles ordered by username
func (r *PostgresRepository) GetProfilesByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1) ORDER BY username`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	return collectProfiles(rows)
}

// SearchProfiles matches username or full name, case-insensitively
func (r *PostgresRepository) SearchProfiles(ctx context.Context, query string, limit, offset int) ([]*domain.Profile, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := r.db.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE username ILIKE $1 OR full_name ILIKE $1
		ORDER BY username
		LIMIT $2 OFFSET $3`,
		pattern, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return collectProfiles(rows)
}

func collectProfiles(rows pgx.Rows) ([]*domain.Profile, error) {
	defer rows.Close()

	profiles := []*domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Username,
		&p.FullName,
		&p.Email,
		&p.Bio,
		&p.IsActive,
		&p.SearchVisibility,
		&p.ProfileVisibility,
		&p.ShowFullName,
		&p.ShowEmail,
		&p.AllowFriendRequests,
		&p.AllowChatInvites,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
