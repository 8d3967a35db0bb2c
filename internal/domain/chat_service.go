package domain

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
	previewLength   = 100
)

// MessagePage is one slice of a room's history. Cursors are opaque tokens.
type MessagePage struct {
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []*Message `json:"results"`
}

// ChatService is the chat message store: participant-scoped, cursor-paginated
// access to rooms and messages.
type ChatService struct {
	repo     ChatRepository
	profiles ProfileRepository
	guard    *AccessControlGuard
	realtime RealtimePublisher
	sink     NotificationSink
	logger   *zap.Logger

	defaultPageSize int
	maxPageSize     int
}

func NewChatService(
	repo ChatRepository,
	profiles ProfileRepository,
	guard *AccessControlGuard,
	realtime RealtimePublisher,
	sink NotificationSink,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		repo:            repo,
		profiles:        profiles,
		guard:           guard,
		realtime:        realtime,
		sink:            sink,
		logger:          logger,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
	}
}

// WithPageSizes overrides the default and maximum page sizes
func (s *ChatService) WithPageSizes(def, max int) *ChatService {
	if def > 0 {
		s.defaultPageSize = def
	}
	if max > 0 {
		s.maxPageSize = max
	}
	if s.defaultPageSize > s.maxPageSize {
		s.defaultPageSize = s.maxPageSize
	}
	return s
}

// CreateRoom creates a room with a fixed participant set. The creator is
// always a participant; invitees must accept chat invites.
func (s *ChatService) CreateRoom(ctx context.Context, creatorID uuid.UUID, name string, roomType RoomType, participants []uuid.UUID) (*ChatRoom, error) {
	if !roomType.Valid() {
		return nil, ErrInvalidRoomType
	}

	members := []uuid.UUID{creatorID}
	seen := map[uuid.UUID]bool{creatorID: true}
	for _, p := range participants {
		if p == uuid.Nil || seen[p] {
			continue
		}
		seen[p] = true
		members = append(members, p)
	}
	if roomType == RoomOneToOne && len(members) != 2 {
		return nil, ErrInvalidRoom
	}

	for _, p := range members[1:] {
		profile, err := s.profiles.GetProfileByUserID(ctx, p)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrUnknownParticipant
			}
			return nil, err
		}
		if !profile.AllowChatInvites {
			return nil, ErrInvitesDisabled
		}
	}

	return s.repo.CreateRoom(ctx, CreateRoomParams{
		Name:         strings.TrimSpace(name),
		RoomType:     roomType,
		CreatorID:    creatorID,
		Participants: members,
	})
}

// GetRoom returns a room the viewer participates in
func (s *ChatService) GetRoom(ctx context.Context, roomID, viewer uuid.UUID) (*ChatRoom, error) {
	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !s.guard.CanReadRoom(viewer, room) {
		return nil, ErrForbidden
	}
	return room, nil
}

func (s *ChatService) GetUserRooms(ctx context.Context, userID uuid.UUID) ([]*ChatRoom, error) {
	return s.repo.GetRoomsByUserID(ctx, userID)
}

// List returns one page of a room's messages, newest first. cursor is the
// token from a previous page's Next or Previous; empty means the first page.
func (s *ChatService) List(ctx context.Context, roomID, viewer uuid.UUID, cursor string, pageSize int) (*MessagePage, error) {
	if _, err := s.GetRoom(ctx, roomID, viewer); err != nil {
		return nil, err
	}

	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	pageSize = s.clampPageSize(pageSize)

	q := PageQuery{ChatRoomID: roomID, Limit: pageSize + 1}
	if cur != nil {
		pos := cur.Position
		q.After = &pos
		q.Reverse = cur.Reverse
	}

	rows, err := s.repo.ListMessages(ctx, q)
	if err != nil {
		return nil, err
	}

	if rows == nil {
		rows = []*Message{}
	}
	more := len(rows) > pageSize
	if more {
		rows = rows[:pageSize]
	}

	page := &MessagePage{Results: rows}
	if q.Reverse {
		// Reverse pages come back oldest first; flip to the display order
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
		if len(rows) > 0 {
			page.Next = encode(Cursor{Position: WatermarkOf(rows[len(rows)-1])})
			if more {
				page.Previous = encode(Cursor{Position: WatermarkOf(rows[0]), Reverse: true})
			}
		} else {
			// Nothing newer than the watermark; resume forward from it
			page.Next = encode(Cursor{Position: *q.After})
		}
		return page, nil
	}

	if more {
		page.Next = encode(Cursor{Position: WatermarkOf(rows[len(rows)-1])})
	}
	if cur != nil && len(rows) > 0 {
		page.Previous = encode(Cursor{Position: WatermarkOf(rows[0]), Reverse: true})
	}
	return page, nil
}

// Create posts a message to a room as sender
func (s *ChatService) Create(ctx context.Context, roomID, sender uuid.UUID, content string, isRead bool) (*Message, error) {
	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !s.guard.CanPost(sender, room) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrBlankContent
	}

	msg, err := s.repo.CreateMessage(ctx, CreateMessageParams{
		ChatRoomID: roomID,
		SenderID:   sender,
		Content:    content,
		IsRead:     isRead,
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(room, "new_message", msg)
	s.notifyParticipants(ctx, room, msg)
	return msg, nil
}

// Update edits content and/or the read flag. Only the sender may update.
func (s *ChatService) Update(ctx context.Context, messageID int64, actor uuid.UUID, params UpdateMessageParams) (*Message, error) {
	msg, err := s.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireWrite(actor, msg); err != nil {
		return nil, err
	}
	if params.Content != nil && strings.TrimSpace(*params.Content) == "" {
		return nil, ErrBlankContent
	}

	updated, err := s.repo.UpdateMessage(ctx, messageID, params)
	if err != nil {
		return nil, err
	}
	if room, err := s.repo.GetRoomByID(ctx, updated.ChatRoomID); err == nil {
		s.broadcast(room, "message_updated", updated)
	}
	return updated, nil
}

// Delete hard-deletes a message. Only the sender may delete.
func (s *ChatService) Delete(ctx context.Context, messageID int64, actor uuid.UUID) error {
	msg, err := s.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.guard.RequireWrite(actor, msg); err != nil {
		return err
	}
	if err := s.repo.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	if room, err := s.repo.GetRoomByID(ctx, msg.ChatRoomID); err == nil {
		s.broadcast(room, "message_deleted", Map{"id": msg.ID, "chat_room": msg.ChatRoomID})
	}
	return nil
}

func (s *ChatService) clampPageSize(n int) int {
	if n <= 0 {
		return s.defaultPageSize
	}
	if n > s.maxPageSize {
		return s.maxPageSize
	}
	return n
}

func (s *ChatService) broadcast(room *ChatRoom, kind string, payload interface{}) {
	if s.realtime == nil {
		return
	}
	event := RealtimeEvent{Type: kind, Payload: payload}
	for _, p := range room.Participants {
		s.realtime.SendToUser(p, event)
	}
}

func (s *ChatService) notifyParticipants(ctx context.Context, room *ChatRoom, msg *Message) {
	if s.sink == nil {
		return
	}
	preview := msg.Content
	if utf8.RuneCountInString(preview) > previewLength {
		preview = string([]rune(preview)[:previewLength])
	}
	senderName := ""
	if p, err := s.profiles.GetProfileByUserID(ctx, msg.SenderID); err == nil {
		senderName = p.Username
	}
	for _, p := range room.Participants {
		if p == msg.SenderID {
			continue
		}
		err := s.sink.Notify(ctx, p, NotificationChatMessage, Map{
			"chat_room":       room.ID.String(),
			"message_id":      msg.ID,
			"sender_username": senderName,
			"preview":         preview,
		})
		if err != nil {
			s.logger.Warn("failed to notify participant", zap.String("user_id", p.String()), zap.Error(err))
		}
	}
}

func encode(c Cursor) *string {
	token := c.Encode()
	return &token
}
