package domain_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/edulite/backend/internal/domain"
	"github.com/edulite/backend/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

type sentNotification struct {
	Recipient uuid.UUID
	Kind      domain.NotificationKind
	Payload   domain.Map
}

// recordingSink captures notifications instead of delivering them
type recordingSink struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (s *recordingSink) Notify(ctx context.Context, recipient uuid.UUID, kind domain.NotificationKind, payload domain.Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentNotification{Recipient: recipient, Kind: kind, Payload: payload})
	return s.err
}

func (s *recordingSink) all() []sentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentNotification(nil), s.sent...)
}

type publishedEvent struct {
	UserID uuid.UUID
	Event  domain.RealtimeEvent
}

// recordingPublisher captures realtime events
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) SendToUser(userID uuid.UUID, event interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: event.(domain.RealtimeEvent)})
}

func (p *recordingPublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

// testClock hands out strictly increasing timestamps
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type testEnv struct {
	repo       *repository.MemoryRepository
	graph      *domain.RelationshipGraph
	requests   *domain.FriendRequestService
	visibility *domain.VisibilityResolver
	chat       *domain.ChatService
	sink       *recordingSink
	realtime   *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithClock(t, newTestClock().Now)
}

// frozenClock returns the same instant on every call, so every row ties on created_at
func frozenClock() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func newTestEnvWithClock(t *testing.T, now func() time.Time) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := repository.NewMemoryRepository().WithClock(now)
	graph := domain.NewRelationshipGraph(repo)
	sink := &recordingSink{}
	realtime := &recordingPublisher{}

	return &testEnv{
		repo:       repo,
		graph:      graph,
		requests:   domain.NewFriendRequestService(repo, repo, graph, sink, logger),
		visibility: domain.NewVisibilityResolver(graph, repo),
		chat:       domain.NewChatService(repo, repo, domain.NewAccessControlGuard(), realtime, sink, logger),
		sink:       sink,
		realtime:   realtime,
	}
}

// profile creates an active profile that accepts requests and invites;
// mutate adjusts it before it is stored.
func (e *testEnv) profile(t *testing.T, username string, mutate ...func(*domain.Profile)) *domain.Profile {
	t.Helper()
	p := &domain.Profile{
		Username:            username,
		FullName:            username + " Example",
		Email:               username + "@example.com",
		IsActive:            true,
		SearchVisibility:    domain.SearchEveryone,
		ProfileVisibility:   domain.ProfilePublic,
		ShowFullName:        true,
		ShowEmail:           false,
		AllowFriendRequests: true,
		AllowChatInvites:    true,
	}
	for _, m := range mutate {
		m(p)
	}
	created, err := e.repo.CreateProfile(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateProfile(%s) failed: %v", username, err)
	}
	return created
}

func (e *testEnv) befriend(t *testing.T, a, b *domain.Profile) {
	t.Helper()
	if err := e.graph.AddEdge(context.Background(), a.ID, b.ID); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
}

func withSearch(v domain.SearchVisibility) func(*domain.Profile) {
	return func(p *domain.Profile) { p.SearchVisibility = v }
}

func withProfileVisibility(v domain.ProfileVisibility) func(*domain.Profile) {
	return func(p *domain.Profile) { p.ProfileVisibility = v }
}

func strPtr(s string) *string { return &s }
