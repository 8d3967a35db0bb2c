package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/edulite/backend/internal/domain"
)

func TestCanDiscover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	viewer := env.profile(t, "viewer")
	friend := env.profile(t, "friend")
	bridge := env.profile(t, "bridge")
	env.befriend(t, viewer, friend)
	env.befriend(t, viewer, bridge)

	tests := []struct {
		name       string
		visibility domain.SearchVisibility
		relation   func(target *domain.Profile)
		want       bool
	}{
		{"everyone, stranger", domain.SearchEveryone, nil, true},
		{"friends_only, stranger", domain.SearchFriendsOnly, nil, false},
		{"friends_only, friend", domain.SearchFriendsOnly, func(p *domain.Profile) { env.befriend(t, viewer, p) }, true},
		{"friends_of_friends, friend", domain.SearchFriendsOfFriends, func(p *domain.Profile) { env.befriend(t, viewer, p) }, true},
		{"friends_of_friends, shared friend", domain.SearchFriendsOfFriends, func(p *domain.Profile) { env.befriend(t, bridge, p) }, true},
		{"friends_of_friends, stranger", domain.SearchFriendsOfFriends, nil, false},
		{"nobody, stranger", domain.SearchNobody, nil, false},
		{"nobody, friend", domain.SearchNobody, func(p *domain.Profile) { env.befriend(t, viewer, p) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := env.profile(t, "target-"+string(tt.visibility), withSearch(tt.visibility))
			if tt.relation != nil {
				tt.relation(target)
			}
			got, err := env.visibility.CanDiscover(ctx, viewer, target)
			if err != nil {
				t.Fatalf("CanDiscover failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCanDiscoverTwoHopBound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// viewer - a - b - target: three hops, no shared friend
	viewer := env.profile(t, "viewer")
	a := env.profile(t, "a")
	b := env.profile(t, "b")
	target := env.profile(t, "target", withSearch(domain.SearchFriendsOfFriends))
	env.befriend(t, viewer, a)
	env.befriend(t, a, b)
	env.befriend(t, b, target)

	ok, err := env.visibility.CanDiscover(ctx, viewer, target)
	if err != nil {
		t.Fatalf("CanDiscover failed: %v", err)
	}
	if ok {
		t.Error("a three-hop path must not grant friends_of_friends visibility")
	}
}

func TestCanDiscoverSelfAndInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hidden := env.profile(t, "hidden", withSearch(domain.SearchNobody))
	if ok, _ := env.visibility.CanDiscover(ctx, hidden, hidden); !ok {
		t.Error("a profile can always discover itself")
	}

	viewer := env.profile(t, "viewer")
	inactive := env.profile(t, "inactive", func(p *domain.Profile) { p.IsActive = false })
	env.befriend(t, viewer, inactive)
	if ok, _ := env.visibility.CanDiscover(ctx, viewer, inactive); ok {
		t.Error("inactive profiles are never discoverable")
	}
}

func TestCanDiscoverIgnoresViewerSetting(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.profile(t, "viewer", withSearch(domain.SearchNobody))
	target := env.profile(t, "target")

	if ok, _ := env.visibility.CanDiscover(context.Background(), viewer, target); !ok {
		t.Error("the viewer's own visibility must not gate discovery")
	}
}

// C is friends_only and not B's friend; D is friends_of_friends and shares
// a friend with B.
func TestSearchScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.profile(t, "bob")
	c := env.profile(t, "carol", withSearch(domain.SearchFriendsOnly))
	d := env.profile(t, "dan", withSearch(domain.SearchFriendsOfFriends))
	mutual := env.profile(t, "mia")
	env.befriend(t, c, mutual)
	env.befriend(t, d, mutual)
	env.befriend(t, b, mutual)

	found, err := env.visibility.Search(ctx, b, "carol", 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected carol to be hidden, got %d results", len(found))
	}

	found, err = env.visibility.Search(ctx, b, "dan", 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != d.ID {
		t.Errorf("expected dan in results, got %v", found)
	}
}

func TestRenderRedaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	viewer := env.profile(t, "viewer")

	public := env.profile(t, "public", func(p *domain.Profile) { p.ShowEmail = true })
	friendsOnly := env.profile(t, "friendsonly", withProfileVisibility(domain.ProfileFriendsOnly))
	private := env.profile(t, "private", withProfileVisibility(domain.ProfilePrivate))

	resp, _ := env.visibility.Render(ctx, viewer, public)
	if resp.IsLimited || resp.Email != public.Email || resp.FullName != public.FullName {
		t.Errorf("expected full public view, got %+v", resp)
	}

	resp, _ = env.visibility.Render(ctx, viewer, friendsOnly)
	if !resp.IsLimited || resp.FullName != "" {
		t.Errorf("expected limited view for a stranger, got %+v", resp)
	}

	env.befriend(t, viewer, friendsOnly)
	resp, _ = env.visibility.Render(ctx, viewer, friendsOnly)
	if resp.IsLimited || !resp.IsFriend || resp.FullName != friendsOnly.FullName {
		t.Errorf("expected full view for a friend, got %+v", resp)
	}
	if resp.Email != "" {
		t.Error("email must stay hidden when show_email is off")
	}

	env.befriend(t, viewer, private)
	resp, _ = env.visibility.Render(ctx, viewer, private)
	if !resp.IsLimited || resp.Username != private.Username {
		t.Errorf("expected username-only view of a private profile, got %+v", resp)
	}

	resp, _ = env.visibility.Render(ctx, private, private)
	if resp.IsLimited || resp.Email != private.Email {
		t.Errorf("expected owner to see everything, got %+v", resp)
	}
}

func TestLookupHidesUndiscoverable(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.profile(t, "viewer")
	hidden := env.profile(t, "hidden", withSearch(domain.SearchNobody))

	_, err := env.visibility.Lookup(context.Background(), viewer, hidden.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFriendsListSkipsInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	viewer := env.profile(t, "viewer")
	target := env.profile(t, "target")
	active := env.profile(t, "active")
	gone := env.profile(t, "gone", func(p *domain.Profile) { p.IsActive = false })
	env.befriend(t, target, active)
	env.befriend(t, target, gone)
	env.befriend(t, target, viewer)

	friends, err := env.visibility.Friends(ctx, viewer, target.ID)
	if err != nil {
		t.Fatalf("Friends failed: %v", err)
	}
	if len(friends) != 2 {
		t.Fatalf("expected 2 active friends, got %d", len(friends))
	}
	for _, f := range friends {
		if f.ID == gone.ID {
			t.Error("inactive friend listed")
		}
	}

	mutual, err := env.visibility.MutualFriends(ctx, viewer, active.ID)
	if err != nil {
		t.Fatalf("MutualFriends failed: %v", err)
	}
	if len(mutual) != 1 || mutual[0].ID != target.ID {
		t.Errorf("expected target as the only mutual friend, got %v", mutual)
	}
}

func TestSearchSkipsHiddenMatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	viewer := env.profile(t, "viewer")

	// More hidden matches than one store batch, all sorting ahead of the visible ones
	for i := 0; i < 60; i++ {
		env.profile(t, fmt.Sprintf("match-a%02d", i), withSearch(domain.SearchNobody))
	}
	for i := 0; i < 5; i++ {
		env.profile(t, fmt.Sprintf("match-v%d", i))
	}

	found, err := env.visibility.Search(ctx, viewer, "match", 20, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 5 {
		t.Fatalf("expected 5 visible matches, got %d", len(found))
	}

	var paged []string
	for offset := 0; offset < 6; offset += 2 {
		page, err := env.visibility.Search(ctx, viewer, "match", 2, offset)
		if err != nil {
			t.Fatalf("Search(offset=%d) failed: %v", offset, err)
		}
		for _, p := range page {
			paged = append(paged, p.Username)
		}
	}
	want := []string{"match-v0", "match-v1", "match-v2", "match-v3", "match-v4"}
	if fmt.Sprint(paged) != fmt.Sprint(want) {
		t.Errorf("expected %v across pages, got %v", want, paged)
	}
}

func TestMutualFriendsHidesUndiscoverable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	viewer := env.profile(t, "viewer")
	hidden := env.profile(t, "hidden", withSearch(domain.SearchNobody))
	inactive := env.profile(t, "inactive", func(p *domain.Profile) { p.IsActive = false })
	shared := env.profile(t, "shared")
	open := env.profile(t, "open")
	for _, p := range []*domain.Profile{viewer, hidden, inactive, open} {
		env.befriend(t, p, shared)
	}

	for _, target := range []*domain.Profile{hidden, inactive} {
		if _, err := env.visibility.MutualFriends(ctx, viewer, target.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", target.Username, err)
		}
	}

	mutual, err := env.visibility.MutualFriends(ctx, viewer, open.ID)
	if err != nil {
		t.Fatalf("MutualFriends failed: %v", err)
	}
	if len(mutual) != 1 || mutual[0].ID != shared.ID {
		t.Errorf("expected shared friend, got %+v", mutual)
	}
}
