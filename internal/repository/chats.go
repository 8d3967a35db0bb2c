package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edulite/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, chat_room_id, sender_id, content, created_at, is_read`

// CreateRoom inserts a room and its fixed participant set
func (r *PostgresRepository) CreateRoom(ctx context.Context, params domain.CreateRoomParams) (*domain.ChatRoom, error) {
	var room *domain.ChatRoom
	err := r.withTx(ctx, func(tx *PostgresRepository) error {
		var rm domain.ChatRoom
		err := tx.db.QueryRow(ctx, `
			INSERT INTO chat_rooms (name, room_type, creator_id)
			VALUES ($1, $2, $3)
			RETURNING id, name, room_type, creator_id, created_at, updated_at`,
			params.Name, params.RoomType, params.CreatorID,
		).Scan(&rm.ID, &rm.Name, &rm.RoomType, &rm.CreatorID, &rm.CreatedAt, &rm.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}

		for _, userID := range params.Participants {
			if _, err := tx.db.Exec(ctx,
				`INSERT INTO chat_room_participants (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				rm.ID, userID,
			); err != nil {
				return fmt.Errorf("failed to add participant: %w", err)
			}
		}
		rm.Participants = append([]uuid.UUID(nil), params.Participants...)
		room = &rm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoomByID retrieves a room with its participants
func (r *PostgresRepository) GetRoomByID(ctx context.Context, roomID uuid.UUID) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.db.QueryRow(ctx, `
		SELECT id, name, room_type, creator_id, created_at, updated_at
		FROM chat_rooms WHERE id = $1`,
		roomID,
	).Scan(&room.ID, &room.Name, &room.RoomType, &room.CreatorID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	room.Participants, err = r.collectIDs(ctx,
		`SELECT user_id FROM chat_room_participants WHERE room_id = $1 ORDER BY joined_at, user_id`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRoomsByUserID lists the rooms a user participates in, most recently active first
func (r *PostgresRepository) GetRoomsByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.ChatRoom, error) {
	ids, err := r.collectIDs(ctx, `
		SELECT r.id
		FROM chat_rooms r
		JOIN chat_room_participants p ON p.room_id = r.id
		WHERE p.user_id = $1
		ORDER BY r.updated_at DESC, r.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	rooms := make([]*domain.ChatRoom, 0, len(ids))
	for _, id := range ids {
		room, err := r.GetRoomByID(ctx, id)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// CreateMessage inserts a message and bumps the room's updated_at. The room row
// is locked first, so within a room a later id never gets an earlier created_at.
func (r *PostgresRepository) CreateMessage(ctx context.Context, params domain.CreateMessageParams) (*domain.Message, error) {
	var msg *domain.Message
	err := r.withTx(ctx, func(tx *PostgresRepository) error {
		var createdAt time.Time
		err := tx.db.QueryRow(ctx, `
			UPDATE chat_rooms
			SET updated_at = GREATEST(clock_timestamp(), updated_at)
			WHERE id = $1
			RETURNING updated_at`,
			params.ChatRoomID,
		).Scan(&createdAt)
		if err != nil {
			return notFound(err)
		}

		row := tx.db.QueryRow(ctx, `
			INSERT INTO messages (chat_room_id, sender_id, content, is_read, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+messageColumns,
			params.ChatRoomID, params.SenderID, params.Content, params.IsRead, createdAt,
		)
		m, err := scanMessage(row)
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessageByID retrieves a message by ID
func (r *PostgresRepository) GetMessageByID(ctx context.Context, messageID int64) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, messageID)
	return scanMessage(row)
}

// UpdateMessage applies the non-nil fields of params
func (r *PostgresRepository) UpdateMessage(ctx context.Context, messageID int64, params domain.UpdateMessageParams) (*domain.Message, error) {
	query := `
		UPDATE messages
		SET content = COALESCE($2, content),
		    is_read = COALESCE($3, is_read)
		WHERE id = $1
		RETURNING ` + messageColumns
	row := r.db.QueryRow(ctx, query, messageID, params.Content, params.IsRead)
	return scanMessage(row)
}

// DeleteMessage hard-deletes a message
func (r *PostgresRepository) DeleteMessage(ctx context.Context, messageID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListMessages runs a keyset query relative to the watermark
func (r *PostgresRepository) ListMessages(ctx context.Context, q domain.PageQuery) ([]*domain.Message, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + messageColumns + ` FROM messages WHERE chat_room_id = $1`)
	args := []any{q.ChatRoomID}

	cmp, order := "<", "DESC"
	if q.Reverse {
		cmp, order = ">", "ASC"
	}
	if q.After != nil {
		sb.WriteString(fmt.Sprintf(` AND (created_at, id) %s ($2, $3)`, cmp))
		args = append(args, q.After.CreatedAt, q.After.ID)
	}
	sb.WriteString(fmt.Sprintf(` ORDER BY created_at %[1]s, id %[1]s LIMIT $%d`, order, len(args)+1))
	args = append(args, q.Limit)

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	err := row.Scan(&m.ID, &m.ChatRoomID, &m.SenderID, &m.Content, &m.CreatedAt, &m.IsRead)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}
