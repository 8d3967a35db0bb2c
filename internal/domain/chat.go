package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlankContent       = errors.New("this field may not be blank")
	ErrInvalidCursor      = errors.New("invalid cursor")
	ErrInvalidRoom        = errors.New("a one-to-one room needs exactly two participants")
	ErrInvalidRoomType    = errors.New("unknown room type")
	ErrInvitesDisabled    = errors.New("a participant is not accepting chat invites")
	ErrUnknownParticipant = errors.New("a participant does not exist")
)

type RoomType string

const (
	RoomOneToOne RoomType = "ONE_TO_ONE"
	RoomGroup    RoomType = "GROUP"
	RoomCourse   RoomType = "COURSE"
)

// Valid reports whether t is a known room type
func (t RoomType) Valid() bool {
	switch t {
	case RoomOneToOne, RoomGroup, RoomCourse:
		return true
	}
	return false
}

// ChatRoom membership is fixed at creation; participants are user ids
type ChatRoom struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name,omitempty"`
	RoomType     RoomType    `json:"room_type"`
	CreatorID    uuid.UUID   `json:"creator"`
	Participants []uuid.UUID `json:"participants"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// HasParticipant reports whether userID belongs to the room
func (r *ChatRoom) HasParticipant(userID uuid.UUID) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// CanRead implements ReadCapability: participants read the room
func (r *ChatRoom) CanRead(viewer uuid.UUID) bool {
	return r.HasParticipant(viewer)
}

// CanWrite implements WriteCapability: participants post to the room
func (r *ChatRoom) CanWrite(viewer uuid.UUID) bool {
	return r.HasParticipant(viewer)
}

type Message struct {
	ID         int64     `json:"id"`
	ChatRoomID uuid.UUID `json:"chat_room"`
	SenderID   uuid.UUID `json:"sender"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	IsRead     bool      `json:"is_read"`
}

// CanWrite implements WriteCapability: only the sender edits or deletes
func (m *Message) CanWrite(viewer uuid.UUID) bool {
	return m.SenderID == viewer
}

type CreateRoomParams struct {
	Name         string
	RoomType     RoomType
	CreatorID    uuid.UUID
	Participants []uuid.UUID
}

type CreateMessageParams struct {
	ChatRoomID uuid.UUID
	SenderID   uuid.UUID
	Content    string
	IsRead     bool
}

type UpdateMessageParams struct {
	Content *string
	IsRead  *bool
}

// PageQuery selects one page of a room's messages relative to a watermark.
// With After nil the newest messages are returned.
type PageQuery struct {
	ChatRoomID uuid.UUID
	After      *Watermark
	Reverse    bool
	Limit      int
}

type ChatRepository interface {
	CreateRoom(ctx context.Context, params CreateRoomParams) (*ChatRoom, error)
	GetRoomByID(ctx context.Context, roomID uuid.UUID) (*ChatRoom, error)
	GetRoomsByUserID(ctx context.Context, userID uuid.UUID) ([]*ChatRoom, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (*Message, error)
	GetMessageByID(ctx context.Context, messageID int64) (*Message, error)
	UpdateMessage(ctx context.Context, messageID int64, params UpdateMessageParams) (*Message, error)
	DeleteMessage(ctx context.Context, messageID int64) error
	// ListMessages returns up to Limit rows. Forward pages are ordered
	// (created_at DESC, id DESC) strictly past the watermark; reverse pages are
	// ordered (created_at ASC, id ASC) strictly before it.
	ListMessages(ctx context.Context, q PageQuery) ([]*Message, error)
}
