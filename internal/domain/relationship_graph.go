package domain

import (
	"context"

	"github.com/google/uuid"
)

// FriendshipRepository stores the symmetric friendship adjacency sets
type FriendshipRepository interface {
	// AreFriends is a membership test against the adjacency index
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
	// MutualFriends returns the intersection of both friend sets, excluding a and b
	MutualFriends(ctx context.Context, a, b uuid.UUID) ([]uuid.UUID, error)
	// FriendsOf returns the friend set of a profile
	FriendsOf(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error)
	// AddFriendship inserts both directions in one transaction; existing edges are kept
	AddFriendship(ctx context.Context, a, b uuid.UUID) error
}

// RelationshipGraph answers friendship queries over the adjacency store
type RelationshipGraph struct {
	repo FriendshipRepository
}

// NewRelationshipGraph creates a new relationship graph
func NewRelationshipGraph(repo FriendshipRepository) *RelationshipGraph {
	return &RelationshipGraph{repo: repo}
}

// AreFriends reports whether a and b share an edge. A profile is never its own friend.
func (g *RelationshipGraph) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return false, nil
	}
	return g.repo.AreFriends(ctx, a, b)
}

// MutualFriends returns the profiles that are friends with both a and b
func (g *RelationshipGraph) MutualFriends(ctx context.Context, a, b uuid.UUID) ([]uuid.UUID, error) {
	if a == b {
		return []uuid.UUID{}, nil
	}
	ids, err := g.repo.MutualFriends(ctx, a, b)
	if err != nil {
		return nil, err
	}

	// The store excludes the endpoints already; keep the guarantee here too
	out := ids[:0]
	for _, id := range ids {
		if id != a && id != b {
			out = append(out, id)
		}
	}
	return out, nil
}

// HasMutualFriend reports whether a 2-hop path exists between a and b
func (g *RelationshipGraph) HasMutualFriend(ctx context.Context, a, b uuid.UUID) (bool, error) {
	ids, err := g.MutualFriends(ctx, a, b)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// FriendsOf returns the friend set of a profile
func (g *RelationshipGraph) FriendsOf(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	return g.repo.FriendsOf(ctx, profileID)
}

// AddEdge links a and b in both directions. It is a no-op when the edge exists.
func (g *RelationshipGraph) AddEdge(ctx context.Context, a, b uuid.UUID) error {
	if a == b {
		return ErrSelfRequest
	}
	return g.repo.AddFriendship(ctx, a, b)
}
