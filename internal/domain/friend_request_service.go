package domain

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FriendRequestService runs the friend request state machine:
// NONE -> PENDING -> {FRIENDS, NONE}
type FriendRequestService struct {
	requests FriendRequestRepository
	profiles ProfileRepository
	graph    *RelationshipGraph
	sink     NotificationSink
	logger   *zap.Logger
}

func NewFriendRequestService(
	requests FriendRequestRepository,
	profiles ProfileRepository,
	graph *RelationshipGraph,
	sink NotificationSink,
	logger *zap.Logger,
) *FriendRequestService {
	return &FriendRequestService{
		requests: requests,
		profiles: profiles,
		graph:    graph,
		sink:     sink,
		logger:   logger,
	}
}

// Send creates a pending request from sender to receiver and notifies the receiver
func (s *FriendRequestService) Send(ctx context.Context, senderID, receiverID uuid.UUID, message *string) (*FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}

	sender, err := s.profiles.GetProfileByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.profiles.GetProfileByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if !receiver.IsActive {
		return nil, ErrNotFound
	}

	friends, err := s.graph.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	existing, err := s.requests.GetFriendRequestBetween(ctx, senderID, receiverID)
	switch {
	case err == nil:
		if existing.SenderProfileID == senderID {
			return nil, ErrRequestAlreadySent
		}
		return nil, ErrRequestAlreadyReceived
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	if message != nil && utf8.RuneCountInString(*message) > MaxFriendRequestMessageLength {
		return nil, ErrMessageTooLong
	}
	if !receiver.AllowFriendRequests {
		return nil, ErrRequestsDisabled
	}

	// A concurrent send for the same pair loses on the unique pair index and
	// comes back as ErrDuplicateRequest.
	req, err := s.requests.CreateFriendRequest(ctx, CreateFriendRequestParams{
		SenderProfileID:   senderID,
		ReceiverProfileID: receiverID,
		Message:           message,
	})
	if err != nil {
		return nil, err
	}

	payload := Map{
		"request_id":        req.ID.String(),
		"sender_profile_id": senderID.String(),
		"sender_username":   sender.Username,
	}
	if message != nil {
		payload["message"] = *message
	}
	s.notify(ctx, receiver.UserID, NotificationFriendRequest, payload)

	return req, nil
}

// Accept turns a pending request into a friendship. Only the receiver may
// accept. The request row is locked for the whole transition, so of two
// concurrent accepts exactly one succeeds and the other sees ErrNotFound.
func (s *FriendRequestService) Accept(ctx context.Context, requestID, actorID uuid.UUID) (*FriendRequest, error) {
	req, err := s.requests.ResolveFriendRequest(ctx, requestID, func(ctx context.Context, req *FriendRequest, tx FriendshipRepository) error {
		if !req.CanAccept(actorID) {
			return ErrForbidden
		}
		return NewRelationshipGraph(tx).AddEdge(ctx, req.SenderProfileID, req.ReceiverProfileID)
	})
	if err != nil {
		return nil, err
	}

	sender, err := s.profiles.GetProfileByID(ctx, req.SenderProfileID)
	if err != nil {
		s.logger.Warn("accepted request sender lookup failed", zap.String("request_id", requestID.String()), zap.Error(err))
		return req, nil
	}
	receiver, err := s.profiles.GetProfileByID(ctx, req.ReceiverProfileID)
	if err != nil {
		s.logger.Warn("accepted request receiver lookup failed", zap.String("request_id", requestID.String()), zap.Error(err))
		return req, nil
	}
	s.notify(ctx, sender.UserID, NotificationRequestAccepted, Map{
		"profile_id":      receiver.ID.String(),
		"sender_username": receiver.Username,
	})

	return req, nil
}

// Decline discards a pending request. The receiver declines, the sender cancels;
// both delete the row. The returned role tells the caller which one happened.
func (s *FriendRequestService) Decline(ctx context.Context, requestID, actorID uuid.UUID) (RequestRole, error) {
	var role RequestRole
	_, err := s.requests.ResolveFriendRequest(ctx, requestID, func(ctx context.Context, req *FriendRequest, _ FriendshipRepository) error {
		if !req.CanWrite(actorID) {
			return ErrForbidden
		}
		role = req.RoleOf(actorID)
		return nil
	})
	if err != nil {
		return RoleNone, err
	}
	return role, nil
}

// PendingRequests holds both directions of a profile's pending requests
type PendingRequests struct {
	Incoming []*FriendRequest `json:"incoming"`
	Outgoing []*FriendRequest `json:"outgoing"`
}

// GetPending lists the pending requests a profile has received and sent
func (s *FriendRequestService) GetPending(ctx context.Context, profileID uuid.UUID, limit, offset int) (*PendingRequests, error) {
	if limit <= 0 {
		limit = 20
	}
	incoming, err := s.requests.ListIncomingFriendRequests(ctx, profileID, limit, offset)
	if err != nil {
		return nil, err
	}
	outgoing, err := s.requests.ListOutgoingFriendRequests(ctx, profileID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &PendingRequests{Incoming: incoming, Outgoing: outgoing}, nil
}

func (s *FriendRequestService) notify(ctx context.Context, recipient uuid.UUID, kind NotificationKind, payload Map) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Notify(ctx, recipient, kind, payload); err != nil {
		s.logger.Error("failed to emit notification",
			zap.String("kind", string(kind)),
			zap.String("recipient", recipient.String()),
			zap.Error(err),
		)
	}
}
