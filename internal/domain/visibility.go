package domain

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// searchConcurrency bounds the visibility checks run per search
	searchConcurrency = 8
	// searchBatch is the minimum number of candidates pulled from the store at once
	searchBatch = 50
)

// VisibilityResolver decides who can discover a profile and how much of it
// they get to see once discovered.
type VisibilityResolver struct {
	graph    *RelationshipGraph
	profiles ProfileRepository
}

func NewVisibilityResolver(graph *RelationshipGraph, profiles ProfileRepository) *VisibilityResolver {
	return &VisibilityResolver{
		graph:    graph,
		profiles: profiles,
	}
}

// CanDiscover evaluates the target's search visibility for a viewer. Only the
// target's setting is consulted. friends_of_friends admits direct friends and
// profiles sharing at least one friend, never longer paths.
func (v *VisibilityResolver) CanDiscover(ctx context.Context, viewer, target *Profile) (bool, error) {
	if viewer.ID == target.ID {
		return true, nil
	}
	if !target.IsActive {
		return false, nil
	}

	switch target.SearchVisibility {
	case SearchEveryone:
		return true, nil
	case SearchFriendsOnly:
		return v.graph.AreFriends(ctx, viewer.ID, target.ID)
	case SearchFriendsOfFriends:
		friends, err := v.graph.AreFriends(ctx, viewer.ID, target.ID)
		if err != nil || friends {
			return friends, err
		}
		return v.graph.HasMutualFriend(ctx, viewer.ID, target.ID)
	default:
		// nobody, and anything unrecognised
		return false, nil
	}
}

// Search returns the profiles matching query that viewer is allowed to discover,
// in the order the store ranked them. offset and limit count visible profiles
// only, so hidden matches never shorten a page.
func (v *VisibilityResolver) Search(ctx context.Context, viewer *Profile, query string, limit, offset int) ([]*Profile, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	batch := max(limit, searchBatch)

	out := make([]*Profile, 0, limit)
	skipped := 0
	for storeOffset := 0; ; storeOffset += batch {
		candidates, err := v.profiles.SearchProfiles(ctx, query, batch, storeOffset)
		if err != nil {
			return nil, err
		}
		visible, err := v.discoverable(ctx, viewer, candidates)
		if err != nil {
			return nil, err
		}
		for _, p := range visible {
			if skipped < offset {
				skipped++
				continue
			}
			out = append(out, p)
			if len(out) == limit {
				return out, nil
			}
		}
		if len(candidates) < batch {
			return out, nil
		}
	}
}

// discoverable filters candidates down to those viewer can discover, keeping order
func (v *VisibilityResolver) discoverable(ctx context.Context, viewer *Profile, candidates []*Profile) ([]*Profile, error) {
	visible := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			ok, err := v.CanDiscover(gctx, viewer, c)
			if err != nil {
				return err
			}
			visible[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*Profile, 0, len(candidates))
	for i, c := range candidates {
		if visible[i] {
			out = append(out, c)
		}
	}
	return out, nil
}

// Render applies profile_visibility to a discovered profile. It never changes
// discoverability; it only redacts fields.
//
//   - public: every field the owner chose to show
//   - friends_only: full view for friends, username only for everyone else
//   - private: username only, except for the owner
func (v *VisibilityResolver) Render(ctx context.Context, viewer, target *Profile) (*ProfileResponse, error) {
	if viewer.ID == target.ID {
		resp := &ProfileResponse{
			ID:       target.ID,
			UserID:   target.UserID,
			Username: target.Username,
			FullName: target.FullName,
			Email:    target.Email,
		}
		if target.Bio != nil {
			resp.Bio = *target.Bio
		}
		return resp, nil
	}

	friends, err := v.graph.AreFriends(ctx, viewer.ID, target.ID)
	if err != nil {
		return nil, err
	}

	full := false
	switch target.ProfileVisibility {
	case ProfilePublic:
		full = true
	case ProfileFriendsOnly:
		full = friends
	}

	if !full {
		return &ProfileResponse{
			ID:        target.ID,
			UserID:    target.UserID,
			Username:  target.Username,
			IsFriend:  friends,
			IsLimited: true,
		}, nil
	}

	resp := target.ToResponse()
	resp.IsFriend = friends
	return resp, nil
}

// Lookup fetches a profile for a viewer, hiding it behind ErrNotFound when the
// viewer cannot discover it.
func (v *VisibilityResolver) Lookup(ctx context.Context, viewer *Profile, targetID uuid.UUID) (*ProfileResponse, error) {
	target, err := v.discoverableTarget(ctx, viewer, targetID)
	if err != nil {
		return nil, err
	}
	return v.Render(ctx, viewer, target)
}

// Friends lists a profile's friends, rendered for the viewer. The target must
// be discoverable by the viewer.
func (v *VisibilityResolver) Friends(ctx context.Context, viewer *Profile, targetID uuid.UUID) ([]*ProfileResponse, error) {
	if _, err := v.discoverableTarget(ctx, viewer, targetID); err != nil {
		return nil, err
	}
	ids, err := v.graph.FriendsOf(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return v.renderAll(ctx, viewer, ids)
}

// MutualFriends lists the friends viewer shares with the target. Like Friends,
// an undiscoverable target is ErrNotFound.
func (v *VisibilityResolver) MutualFriends(ctx context.Context, viewer *Profile, targetID uuid.UUID) ([]*ProfileResponse, error) {
	if _, err := v.discoverableTarget(ctx, viewer, targetID); err != nil {
		return nil, err
	}
	ids, err := v.graph.MutualFriends(ctx, viewer.ID, targetID)
	if err != nil {
		return nil, err
	}
	return v.renderAll(ctx, viewer, ids)
}

// discoverableTarget loads targetID, hiding it behind ErrNotFound when viewer
// cannot discover it
func (v *VisibilityResolver) discoverableTarget(ctx context.Context, viewer *Profile, targetID uuid.UUID) (*Profile, error) {
	target, err := v.profiles.GetProfileByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	ok, err := v.CanDiscover(ctx, viewer, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return target, nil
}

func (v *VisibilityResolver) renderAll(ctx context.Context, viewer *Profile, ids []uuid.UUID) ([]*ProfileResponse, error) {
	out := make([]*ProfileResponse, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	profiles, err := v.profiles.GetProfilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if !p.IsActive {
			continue
		}
		resp, err := v.Render(ctx, viewer, p)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}
