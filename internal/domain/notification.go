package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies the event behind a notification
type NotificationKind string

const (
	NotificationFriendRequest   NotificationKind = "friend_request"
	NotificationRequestAccepted NotificationKind = "friend_request_accepted"
	NotificationChatMessage     NotificationKind = "chat_message"
)

// ErrStaleToken is returned by a PushSender when the device token is no longer registered
var ErrStaleToken = errors.New("push token no longer registered")

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      Map              `json:"data"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// Map alias for JSONB data
type Map map[string]interface{}

// NotificationSink receives events emitted by the relationship engine.
// recipient is a user id.
type NotificationSink interface {
	Notify(ctx context.Context, recipient uuid.UUID, kind NotificationKind, payload Map) error
}

type CreateNotificationParams struct {
	UserID uuid.UUID
	Kind   NotificationKind
	Title  string
	Body   string
	Data   Map
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, params CreateNotificationParams) (*Notification, error)
	GetNotificationByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID uuid.UUID) error
	UpsertFCMToken(ctx context.Context, userID uuid.UUID, token string) error
	GetFCMTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeleteFCMToken(ctx context.Context, userID uuid.UUID, token string) error
}
