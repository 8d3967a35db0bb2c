package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxFriendRequestMessageLength is the longest note a sender can attach
const MaxFriendRequestMessageLength = 500

var (
	ErrSelfRequest      = errors.New("you cannot send a friend request to yourself")
	ErrAlreadyFriends   = errors.New("you are already friends with this user")
	ErrDuplicateRequest = errors.New("a friend request already exists between these users")
	ErrMessageTooLong   = errors.New("friend request message cannot exceed 500 characters")
	ErrRequestsDisabled = errors.New("this user is not accepting friend requests")

	ErrRequestAlreadySent     error = duplicateRequestError("you have already sent a friend request to this user")
	ErrRequestAlreadyReceived error = duplicateRequestError("this user has already sent you a friend request, check your pending requests")
)

// duplicateRequestError carries a direction-specific message and matches ErrDuplicateRequest
type duplicateRequestError string

func (e duplicateRequestError) Error() string { return string(e) }

func (e duplicateRequestError) Is(target error) bool { return target == ErrDuplicateRequest }

// FriendRequest is a pending request. Its existence is the pending state;
// resolving it always deletes the row.
type FriendRequest struct {
	ID                uuid.UUID `json:"id"`
	SenderProfileID   uuid.UUID `json:"sender_profile_id"`
	ReceiverProfileID uuid.UUID `json:"receiver_profile_id"`
	Message           *string   `json:"message,omitempty"`
	CreatedAt         time.Time `json:"created_at"`

	// For API responses
	Sender   *ProfileResponse `json:"sender,omitempty"`
	Receiver *ProfileResponse `json:"receiver,omitempty"`
}

// RequestRole is the part an actor plays in a friend request
type RequestRole int

const (
	RoleNone RequestRole = iota
	RoleSender
	RoleReceiver
)

// RoleOf returns the role of actor in the request
func (r *FriendRequest) RoleOf(actor uuid.UUID) RequestRole {
	switch actor {
	case r.ReceiverProfileID:
		return RoleReceiver
	case r.SenderProfileID:
		return RoleSender
	}
	return RoleNone
}

// CanAccept reports whether actor may accept. Only the receiver can.
func (r *FriendRequest) CanAccept(actor uuid.UUID) bool {
	return r.RoleOf(actor) == RoleReceiver
}

// CanWrite reports whether actor may discard the request, as receiver or sender
func (r *FriendRequest) CanWrite(actor uuid.UUID) bool {
	return r.RoleOf(actor) != RoleNone
}

// Involves reports whether the profile is either endpoint of the request
func (r *FriendRequest) Involves(profileID uuid.UUID) bool {
	return r.SenderProfileID == profileID || r.ReceiverProfileID == profileID
}

// CreateFriendRequestParams holds parameters for friend request creation
type CreateFriendRequestParams struct {
	SenderProfileID   uuid.UUID
	ReceiverProfileID uuid.UUID
	Message           *string
}

// ResolveFunc runs while the request row is locked. graph is bound to the same
// transaction. Returning an error rolls back and keeps the row.
type ResolveFunc func(ctx context.Context, req *FriendRequest, graph FriendshipRepository) error

// FriendRequestRepository stores pending friend requests
type FriendRequestRepository interface {
	// CreateFriendRequest returns ErrDuplicateRequest when the pair already has a request
	CreateFriendRequest(ctx context.Context, params CreateFriendRequestParams) (*FriendRequest, error)
	GetFriendRequestByID(ctx context.Context, id uuid.UUID) (*FriendRequest, error)
	// GetFriendRequestBetween finds the request between a and b in either direction
	GetFriendRequestBetween(ctx context.Context, a, b uuid.UUID) (*FriendRequest, error)
	ListIncomingFriendRequests(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*FriendRequest, error)
	ListOutgoingFriendRequests(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*FriendRequest, error)
	// ResolveFriendRequest locks the row, runs fn and deletes the row if fn succeeds.
	// A missing row, including one consumed by a concurrent resolver, is ErrNotFound.
	ResolveFriendRequest(ctx context.Context, id uuid.UUID, fn ResolveFunc) (*FriendRequest, error)
}
