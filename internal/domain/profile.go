package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("you do not have permission to perform this action")
)

// SearchVisibility controls who can find a profile through search
type SearchVisibility string

const (
	SearchEveryone         SearchVisibility = "everyone"
	SearchFriendsOnly      SearchVisibility = "friends_only"
	SearchFriendsOfFriends SearchVisibility = "friends_of_friends"
	SearchNobody           SearchVisibility = "nobody"
)

// Valid reports whether v is a known search visibility setting
func (v SearchVisibility) Valid() bool {
	switch v {
	case SearchEveryone, SearchFriendsOnly, SearchFriendsOfFriends, SearchNobody:
		return true
	}
	return false
}

// ProfileVisibility controls how much of a discovered profile is rendered
type ProfileVisibility string

const (
	ProfilePublic      ProfileVisibility = "public"
	ProfileFriendsOnly ProfileVisibility = "friends_only"
	ProfilePrivate     ProfileVisibility = "private"
)

// Profile is the social identity of a user. Friends live in the adjacency
// store, never on the struct.
type Profile struct {
	ID                  uuid.UUID         `json:"id"`
	UserID              uuid.UUID         `json:"user_id"`
	Username            string            `json:"username"`
	FullName            string            `json:"full_name"`
	Email               string            `json:"email"`
	Bio                 *string           `json:"bio,omitempty"`
	IsActive            bool              `json:"is_active"`
	SearchVisibility    SearchVisibility  `json:"search_visibility"`
	ProfileVisibility   ProfileVisibility `json:"profile_visibility"`
	ShowFullName        bool              `json:"show_full_name"`
	ShowEmail           bool              `json:"show_email"`
	AllowFriendRequests bool              `json:"allow_friend_requests"`
	AllowChatInvites    bool              `json:"allow_chat_invites"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// ProfileResponse is the redacted public representation of a profile
type ProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	IsFriend  bool      `json:"is_friend"`
	IsLimited bool      `json:"is_limited"`
}

// ToResponse renders every field the owner chose to show. Callers that need
// visibility-aware rendering go through VisibilityResolver.Render.
func (p *Profile) ToResponse() *ProfileResponse {
	resp := &ProfileResponse{
		ID:       p.ID,
		UserID:   p.UserID,
		Username: p.Username,
	}
	if p.ShowFullName {
		resp.FullName = p.FullName
	}
	if p.ShowEmail {
		resp.Email = p.Email
	}
	if p.Bio != nil {
		resp.Bio = *p.Bio
	}
	return resp
}

// ProfileRepository defines profile lookups used by the relationship engine
type ProfileRepository interface {
	GetProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetProfilesByIDs(ctx context.Context, ids []uuid.UUID) ([]*Profile, error)
	SearchProfiles(ctx context.Context, query string, limit, offset int) ([]*Profile, error)
}
