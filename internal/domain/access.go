package domain

import "github.com/google/uuid"

// ReadCapability is implemented by resources that grant read access per viewer
type ReadCapability interface {
	CanRead(viewer uuid.UUID) bool
}

// WriteCapability is implemented by resources that grant write access per viewer
type WriteCapability interface {
	CanWrite(viewer uuid.UUID) bool
}

// AccessControlGuard evaluates chat capabilities for a caller. Room
// participants read and post; only a message's sender edits or deletes it.
type AccessControlGuard struct{}

func NewAccessControlGuard() *AccessControlGuard {
	return &AccessControlGuard{}
}

func (g *AccessControlGuard) CanReadRoom(viewer uuid.UUID, room *ChatRoom) bool {
	return room != nil && room.CanRead(viewer)
}

func (g *AccessControlGuard) CanPost(viewer uuid.UUID, room *ChatRoom) bool {
	return room != nil && room.CanWrite(viewer)
}

func (g *AccessControlGuard) CanWriteMessage(viewer uuid.UUID, msg *Message) bool {
	return msg != nil && msg.CanWrite(viewer)
}

// RequireRead returns ErrForbidden unless viewer can read res
func (g *AccessControlGuard) RequireRead(viewer uuid.UUID, res ReadCapability) error {
	if !res.CanRead(viewer) {
		return ErrForbidden
	}
	return nil
}

// RequireWrite returns ErrForbidden unless viewer can write res
func (g *AccessControlGuard) RequireWrite(viewer uuid.UUID, res WriteCapability) error {
	if !res.CanWrite(viewer) {
		return ErrForbidden
	}
	return nil
}
