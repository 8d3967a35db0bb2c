package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PushSender delivers a push message to a single device token
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// RealtimePublisher pushes an event to every live connection of a user
type RealtimePublisher interface {
	SendToUser(userID uuid.UUID, event interface{})
}

// RealtimeEvent is the envelope written to live connections
type RealtimeEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const pushTimeout = 10 * time.Second

// NotificationService persists notifications and fans them out to push and
// realtime channels. It is the NotificationSink used in production.
type NotificationService struct {
	repo     NotificationRepository
	push     PushSender
	realtime RealtimePublisher
	logger   *zap.Logger

	pending sync.WaitGroup
}

func NewNotificationService(repo NotificationRepository, push PushSender, realtime RealtimePublisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:     repo,
		push:     push,
		realtime: realtime,
		logger:   logger,
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.GetNotifications(ctx, userID, limit, offset)
}

// MarkRead marks a notification read. Only its owner may do so.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	n, err := s.repo.GetNotificationByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	return s.repo.MarkNotificationRead(ctx, notificationID)
}

// Notify implements NotificationSink
func (s *NotificationService) Notify(ctx context.Context, recipient uuid.UUID, kind NotificationKind, payload Map) error {
	title, body := describe(kind, payload)

	// 1. Create in DB
	n, err := s.repo.CreateNotification(ctx, CreateNotificationParams{
		UserID: recipient,
		Kind:   kind,
		Title:  title,
		Body:   body,
		Data:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	// 2. Live connections
	if s.realtime != nil {
		s.realtime.SendToUser(recipient, RealtimeEvent{Type: "notification", Payload: n})
	}

	// 3. Send push if client available
	if s.push == nil {
		return nil
	}

	strData := make(map[string]string, len(payload)+1)
	for k, v := range payload {
		strData[k] = fmt.Sprintf("%v", v)
	}
	strData["type"] = string(kind)

	tokens, err := s.repo.GetFCMTokens(ctx, recipient)
	if err != nil {
		s.logger.Warn("failed to get fcm tokens", zap.String("user_id", recipient.String()), zap.Error(err))
		return nil // Don't fail the operation
	}

	for _, token := range tokens {
		if token == "" {
			continue
		}
		s.pending.Add(1)
		go func(t string) {
			defer s.pending.Done()
			s.deliver(recipient, t, title, body, strData)
		}(token)
	}
	return nil
}

// deliver runs detached from the request; a slow push provider never holds up the caller
func (s *NotificationService) deliver(recipient uuid.UUID, token, title, body string, data map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	err := s.push.Send(ctx, token, title, body, data)
	switch {
	case err == nil:
	case errors.Is(err, ErrStaleToken):
		if err := s.repo.DeleteFCMToken(ctx, recipient, token); err != nil {
			s.logger.Warn("failed to drop stale fcm token", zap.String("user_id", recipient.String()), zap.Error(err))
		}
	default:
		s.logger.Debug("push delivery failed", zap.String("user_id", recipient.String()), zap.Error(err))
	}
}

// Wait blocks until in-flight push deliveries finish
func (s *NotificationService) Wait() {
	s.pending.Wait()
}

func (s *NotificationService) UpdateFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	return s.repo.UpsertFCMToken(ctx, userID, token)
}

func describe(kind NotificationKind, payload Map) (string, string) {
	name, _ := payload["sender_username"].(string)
	if name == "" {
		name = "Someone"
	}
	switch kind {
	case NotificationFriendRequest:
		return "New friend request", name + " sent you a friend request"
	case NotificationRequestAccepted:
		return "Friend request accepted", name + " accepted your friend request"
	case NotificationChatMessage:
		body, _ := payload["preview"].(string)
		return name, body
	}
	return "Notification", ""
}
